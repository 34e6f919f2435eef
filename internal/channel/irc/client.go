// Package irc delivers attachment messages into IRC channels using girc.
package irc

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/lrstanley/girc"
	"github.com/soyeahso/attachkit/internal/config"
	"github.com/soyeahso/attachkit/internal/domain"
	"github.com/soyeahso/attachkit/internal/logging"
	"github.com/soyeahso/attachkit/internal/version"
)

// maxLineLen keeps PRIVMSG lines well inside the 512 byte IRC limit.
const maxLineLen = 400

// Channel implements domain.Channel for IRC.
type Channel struct {
	cfg    config.IRCConfig
	client *girc.Client
	log    *logging.Logger

	mu      sync.RWMutex
	running bool
	lastErr string
}

// New creates an IRC channel from configuration.
func New(cfg config.IRCConfig, log *logging.Logger) *Channel {
	return &Channel{
		cfg: cfg,
		log: log.Sub("irc"),
	}
}

func (c *Channel) ID() string { return "irc" }

// Capabilities reports that images and locations are delivered as text.
func (c *Channel) Capabilities() domain.ChannelCapabilities {
	return domain.ChannelCapabilities{Media: true, Location: true}
}

// Status returns the current runtime status.
func (c *Channel) Status() domain.ChannelStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.ChannelStatus{
		ChannelID: "irc",
		Connected: c.client != nil && c.client.IsConnected(),
		Running:   c.running,
		LastError: c.lastErr,
	}
}

func (c *Channel) port() int {
	if c.cfg.Port != 0 {
		return c.cfg.Port
	}
	if c.cfg.UseTLS {
		return 6697
	}
	return 6667
}

func (c *Channel) clientConfig() girc.Config {
	gircCfg := girc.Config{
		Server:  c.cfg.Server,
		Port:    c.port(),
		Nick:    c.cfg.Nick,
		User:    c.cfg.Nick,
		Name:    "attachkit",
		SSL:     c.cfg.UseTLS,
		Version: "attachkit/" + version.Version,
	}

	if c.cfg.UseTLS {
		gircCfg.TLSConfig = &tls.Config{
			ServerName: c.cfg.Server,
		}
	}

	if c.cfg.SASL && c.cfg.Password != "" {
		gircCfg.SASL = &girc.SASLPlain{
			User: c.cfg.Nick,
			Pass: c.cfg.Password,
		}
	} else if c.cfg.Password != "" {
		gircCfg.ServerPass = c.cfg.Password
	}
	return gircCfg
}

// Start connects to the IRC server and joins the configured channels. It
// blocks until the connection ends or ctx is cancelled.
func (c *Channel) Start(ctx context.Context) error {
	client := girc.New(c.clientConfig())
	client.Handlers.Add(girc.CONNECTED, c.onConnected)
	client.Handlers.Add(girc.DISCONNECTED, c.onDisconnected)

	c.mu.Lock()
	c.client = client
	c.running = true
	c.lastErr = ""
	c.mu.Unlock()

	c.log.Info().
		Str("server", c.cfg.Server).
		Int("port", c.port()).
		Str("nick", c.cfg.Nick).
		Strs("channels", c.cfg.Channels).
		Bool("tls", c.cfg.UseTLS).
		Msg("connecting to IRC")

	// Connect blocks for the lifetime of the connection.
	errCh := make(chan error, 1)
	go func() {
		errCh <- client.Connect()
	}()

	select {
	case err := <-errCh:
		c.mu.Lock()
		c.running = false
		if err != nil {
			c.lastErr = err.Error()
		}
		c.mu.Unlock()
		if err != nil {
			return fmt.Errorf("irc connect: %w", err)
		}
		return nil
	case <-ctx.Done():
		client.Close()
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		return ctx.Err()
	}
}

// Stop disconnects from the IRC server.
func (c *Channel) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil && c.client.IsConnected() {
		c.log.Info().Msg("disconnecting from IRC")
		c.client.Quit("attachkit shutting down")
	}
	c.running = false
	return nil
}

// Send delivers a message to msg.To, or to every configured channel when
// msg.To is empty.
func (c *Channel) Send(ctx context.Context, msg domain.OutboundMessage) error {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil || !client.IsConnected() {
		return fmt.Errorf("irc: not connected")
	}

	targets := c.cfg.Channels
	if msg.To != "" {
		targets = []string{msg.To}
	}
	if len(targets) == 0 {
		return fmt.Errorf("irc: no target specified")
	}

	lines := FormatMessage(msg)
	if len(lines) == 0 {
		return fmt.Errorf("irc: empty message")
	}

	for _, target := range targets {
		for _, line := range lines {
			client.Cmd.Message(target, line)
		}
	}

	c.log.Debug().
		Strs("to", targets).
		Int("lines", len(lines)).
		Msg("sent IRC message")
	return nil
}

// FormatMessage renders an outbound message as IRC lines: the body, the
// image URL, and for a location a geo: URI followed by a map link.
func FormatMessage(msg domain.OutboundMessage) []string {
	var parts []string
	if msg.Body != "" {
		parts = append(parts, msg.Body)
	}
	for _, m := range msg.Media {
		if m.URL != "" {
			parts = append(parts, m.URL)
		}
	}
	if loc := msg.Location; loc != nil {
		parts = append(parts, "geo:"+loc.String()+" "+MapLink(*loc))
	}
	if len(parts) == 0 {
		return nil
	}
	return splitMessage(strings.Join(parts, "\n"), maxLineLen)
}

// MapLink returns an OpenStreetMap link centred on the location.
func MapLink(loc domain.Location) string {
	q := url.Values{}
	q.Set("mlat", fmt.Sprintf("%g", loc.Latitude))
	q.Set("mlon", fmt.Sprintf("%g", loc.Longitude))
	return "https://www.openstreetmap.org/?" + q.Encode()
}

func (c *Channel) onConnected(client *girc.Client, _ girc.Event) {
	c.log.Info().Str("nick", client.GetNick()).Msg("connected to IRC")

	for _, ch := range c.cfg.Channels {
		c.log.Info().Str("channel", ch).Msg("joining channel")
		client.Cmd.Join(ch)
	}
}

func (c *Channel) onDisconnected(_ *girc.Client, _ girc.Event) {
	c.log.Warn().Msg("disconnected from IRC")
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}

// splitMessage breaks text into IRC lines. Each newline starts a new line
// and lines longer than maxLen are cut at the byte boundary. Blank lines are
// dropped.
func splitMessage(text string, maxLen int) []string {
	var chunks []string
	for _, line := range strings.Split(text, "\n") {
		for len(line) > maxLen {
			chunks = append(chunks, line[:maxLen])
			line = line[maxLen:]
		}
		if line != "" {
			chunks = append(chunks, line)
		}
	}
	return chunks
}
