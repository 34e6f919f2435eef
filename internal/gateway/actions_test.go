package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/soyeahso/attachkit/internal/actions"
	"github.com/soyeahso/attachkit/internal/blob"
	"github.com/soyeahso/attachkit/internal/config"
	"github.com/soyeahso/attachkit/internal/domain"
	"github.com/soyeahso/attachkit/internal/logging"
	"github.com/soyeahso/attachkit/internal/platform"
	"github.com/soyeahso/attachkit/internal/routing"
	"github.com/soyeahso/attachkit/internal/store"
	"github.com/soyeahso/attachkit/internal/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type attachFixture struct {
	library  string
	mediaDir string
	disk     *blob.DiskStore
	outbox   *store.OutboxStore
	uploads  *store.UploadLedger
	router   *routing.Router
}

func newAttachFixture(t *testing.T) *attachFixture {
	t.Helper()
	log := logging.New(nil, "silent")

	db, err := store.Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mediaDir := t.TempDir()
	disk, err := blob.NewDiskStore(mediaDir, "http://gateway.test/media", 0)
	require.NoError(t, err)

	f := &attachFixture{
		library:  t.TempDir(),
		mediaDir: mediaDir,
		disk:     disk,
		outbox:   store.NewOutboxStore(db),
		uploads:  store.NewUploadLedger(db),
	}
	f.router = routing.NewRouter(log, routing.WithOutbox(f.outbox))
	return f
}

func (f *attachFixture) options() []ServerOption {
	log := logging.New(nil, "silent")
	uploader := upload.New(upload.NewFetcher(5*time.Second), f.disk, upload.SegmentNamer(), log,
		upload.WithLedger(f.uploads))
	perms := platform.NewPolicyPermissions(config.PermissionsConfig{
		MediaLibrary: platform.PolicyGrant,
		Camera:       platform.PolicyDeny,
		Location:     platform.PolicyGrant,
	}, nil, nil, log)

	controls := func(picker domain.ImagePicker) *actions.Control {
		return actions.New(actions.Deps{
			Permissions: perms,
			Picker:      picker,
			Locator:     &platform.StaticLocator{Latitude: 52.5, Longitude: 13.4},
			Uploader:    uploader,
		}, f.router.Deliver, log)
	}
	return []ServerOption{
		WithControls(controls),
		WithRefPolicy(platform.RefPolicy{LibraryDir: f.library}),
		WithOutbox(f.outbox),
		WithUploads(f.uploads),
		WithMedia(f.disk),
	}
}

func rpc(t *testing.T, conn *websocket.Conn, id, method string, params any) Frame {
	t.Helper()
	req, err := NewRequest(id, method, params)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(req))

	for {
		var resp Frame
		require.NoError(t, conn.ReadJSON(&resp))
		if resp.Type == FrameTypeResponse && resp.ID == id {
			return resp
		}
	}
}

type runResult struct {
	Choice  string          `json:"choice"`
	Outcome string          `json:"outcome"`
	Payload *domain.Payload `json:"payload"`
	Error   string          `json:"error"`
}

func decodeRun(t *testing.T, resp Frame) runResult {
	t.Helper()
	require.NotNil(t, resp.OK)
	require.True(t, *resp.OK, "response should be ok: %+v", resp.Error)
	var res runResult
	require.NoError(t, json.Unmarshal(resp.Payload, &res))
	return res
}

func TestActionsRun_Location(t *testing.T) {
	f := newAttachFixture(t)
	conn := authenticatedConn(t, f.options()...)

	res := decodeRun(t, rpc(t, conn, "r1", "actions.run", actionsRunParams{Choice: "location"}))
	assert.Equal(t, "location", res.Choice)
	assert.Equal(t, "emitted", res.Outcome)
	require.NotNil(t, res.Payload)
	require.NotNil(t, res.Payload.Location)
	assert.Equal(t, 13.4, res.Payload.Location.Longitude)
	assert.Equal(t, 52.5, res.Payload.Location.Latitude)

	n, err := f.outbox.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestActionsRun_LibraryUploadsAndServesMedia(t *testing.T) {
	f := newAttachFixture(t)
	_, ts := testServer(t, f.options()...)
	conn := dialAuthenticated(t, ts)

	src := filepath.Join(f.library, "photo123.jpg")
	require.NoError(t, os.WriteFile(src, []byte("\xff\xd8\xff\xe0jpeg-bytes"), 0o644))

	res := decodeRun(t, rpc(t, conn, "r1", "actions.run", actionsRunParams{
		Choice: "library",
		URI:    platform.FileURI(src),
	}))
	assert.Equal(t, "emitted", res.Outcome)
	require.NotNil(t, res.Payload)
	assert.Equal(t, "http://gateway.test/media/photo123.jpg", res.Payload.Image)

	resp, err := http.Get(ts.URL + "/media/photo123.jpg")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "\xff\xd8\xff\xe0jpeg-bytes", string(body))

	uploads := rpc(t, conn, "r2", "uploads.list", listParams{})
	require.True(t, *uploads.OK)
	var ul struct {
		Uploads []store.UploadRecord `json:"uploads"`
	}
	require.NoError(t, json.Unmarshal(uploads.Payload, &ul))
	require.Len(t, ul.Uploads, 1)
	assert.Equal(t, "photo123.jpg", ul.Uploads[0].Name)
}

func (f *attachFixture) assertNothingSent(t *testing.T) {
	t.Helper()
	n, err := f.outbox.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "outbox")
	uploads, err := f.uploads.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, uploads, "uploads")
}

func TestActionsRun_RejectsPathOutsideLibrary(t *testing.T) {
	f := newAttachFixture(t)
	conn := authenticatedConn(t, f.options()...)

	outside := filepath.Join(t.TempDir(), "secret.jpg")
	require.NoError(t, os.WriteFile(outside, []byte("\xff\xd8\xffsecret"), 0o644))
	link := filepath.Join(f.library, "innocent.jpg")
	require.NoError(t, os.Symlink(outside, link))

	for i, uri := range []string{
		"file:///etc/passwd",
		"/etc/passwd",
		platform.FileURI(outside),
		platform.FileURI(link),
		"file://" + filepath.ToSlash(f.library) + "/../" + filepath.Base(filepath.Dir(outside)) + "/secret.jpg",
		"http://127.0.0.1:1/a.jpg",
		"http://169.254.169.254/latest/meta-data/iam.jpg",
		"content://media/external/images/1",
	} {
		res := decodeRun(t, rpc(t, conn, fmt.Sprintf("r%d", i), "actions.run", actionsRunParams{Choice: "library", URI: uri}))
		assert.Equal(t, "permission_denied", res.Outcome, uri)
		assert.Nil(t, res.Payload, uri)
	}

	entries, err := os.ReadDir(f.mediaDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing reaches the media store")
	f.assertNothingSent(t)
}

func TestActionsRun_NoLibraryDeniesFiles(t *testing.T) {
	f := newAttachFixture(t)
	conn := authenticatedConn(t, append(f.options(), WithRefPolicy(platform.RefPolicy{}))...)

	src := filepath.Join(f.library, "photo.jpg")
	require.NoError(t, os.WriteFile(src, []byte("\xff\xd8\xffjpeg"), 0o644))

	res := decodeRun(t, rpc(t, conn, "r1", "actions.run", actionsRunParams{Choice: "library", URI: platform.FileURI(src)}))
	assert.Equal(t, "permission_denied", res.Outcome)
	f.assertNothingSent(t)
}

func TestActionsRun_RejectsNonImage(t *testing.T) {
	f := newAttachFixture(t)
	conn := authenticatedConn(t, f.options()...)

	src := filepath.Join(f.library, "notes.txt")
	require.NoError(t, os.WriteFile(src, []byte("not a picture"), 0o644))

	res := decodeRun(t, rpc(t, conn, "r1", "actions.run", actionsRunParams{Choice: "library", URI: platform.FileURI(src)}))
	assert.Equal(t, "failed", res.Outcome)
	assert.Contains(t, res.Error, "not an image")
	assert.Nil(t, res.Payload)
	f.assertNothingSent(t)
}

func TestActionsRun_CameraDenied(t *testing.T) {
	f := newAttachFixture(t)
	conn := authenticatedConn(t, f.options()...)

	res := decodeRun(t, rpc(t, conn, "r1", "actions.run", actionsRunParams{Choice: "camera", URI: "file:///tmp/x.jpg"}))
	assert.Equal(t, "permission_denied", res.Outcome)
	assert.Nil(t, res.Payload)
}

func TestActionsRun_LibraryWithoutURIIsCancelled(t *testing.T) {
	f := newAttachFixture(t)
	conn := authenticatedConn(t, f.options()...)

	res := decodeRun(t, rpc(t, conn, "r1", "actions.run", actionsRunParams{Choice: "library"}))
	assert.Equal(t, "cancelled", res.Outcome)
}

func TestActionsRun_Cancel(t *testing.T) {
	f := newAttachFixture(t)
	conn := authenticatedConn(t, f.options()...)

	res := decodeRun(t, rpc(t, conn, "r1", "actions.run", actionsRunParams{Choice: "cancel"}))
	assert.Equal(t, "dismissed", res.Outcome)
}

func TestActionsRun_UnknownChoice(t *testing.T) {
	f := newAttachFixture(t)
	conn := authenticatedConn(t, f.options()...)

	resp := rpc(t, conn, "r1", "actions.run", actionsRunParams{Choice: "video"})
	require.NotNil(t, resp.OK)
	assert.False(t, *resp.OK)
	assert.Equal(t, "invalid_params", resp.Error.Code)
}

func TestActionsRun_NotConfigured(t *testing.T) {
	conn := authenticatedConn(t)
	resp := rpc(t, conn, "r1", "actions.run", actionsRunParams{Choice: "location"})
	require.NotNil(t, resp.OK)
	assert.False(t, *resp.OK)
	assert.Equal(t, "unavailable", resp.Error.Code)
}

func TestOutboxList(t *testing.T) {
	f := newAttachFixture(t)
	_, err := f.outbox.Append(context.Background(), "location", domain.LocationPayload(1, 2))
	require.NoError(t, err)
	conn := authenticatedConn(t, f.options()...)

	resp := rpc(t, conn, "r1", "outbox.list", listParams{Limit: 5})
	require.True(t, *resp.OK)
	var out struct {
		Entries []store.OutboxEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(resp.Payload, &out))
	require.Len(t, out.Entries, 1)
	assert.Equal(t, "location", out.Entries[0].Choice)
}

func TestOutboxList_NotConfigured(t *testing.T) {
	conn := authenticatedConn(t)
	resp := rpc(t, conn, "r1", "outbox.list", nil)
	require.True(t, *resp.OK)
	assert.JSONEq(t, `{"entries":[]}`, string(resp.Payload))
}

func TestPublish_BroadcastsAttachmentSent(t *testing.T) {
	f := newAttachFixture(t)
	srv, ts := testServer(t, f.options()...)
	f.router.SetPublisher(srv)
	conn := dialAuthenticated(t, ts)

	// The client is registered once the handshake has been answered; a
	// request round trip makes sure the read loop is running.
	rpc(t, conn, "r0", "health", nil)

	f.router.Deliver(context.Background(), domain.ImagePayload("https://x/a.jpg"))

	var evt Frame
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, FrameTypeEvent, evt.Type)
	assert.Equal(t, EventAttachmentSent, evt.Event)

	var sent routing.SentEvent
	require.NoError(t, json.Unmarshal(evt.Payload, &sent))
	assert.Equal(t, "https://x/a.jpg", sent.Payload.Image)
	assert.NotEmpty(t, sent.ID)
}

func TestMedia_NotFound(t *testing.T) {
	f := newAttachFixture(t)
	_, ts := testServer(t, f.options()...)

	for _, path := range []string{"/media/missing.jpg", "/media/.hidden"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestMedia_NoStore(t *testing.T) {
	_, ts := testServer(t)
	resp, err := http.Get(ts.URL + "/media/a.jpg")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
