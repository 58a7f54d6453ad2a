package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/papertags/smart-papertags-app/internal/api/tagsapi"
	"github.com/papertags/smart-papertags-app/internal/auth"
	"github.com/papertags/smart-papertags-app/internal/integrations/geoip"
	"github.com/papertags/smart-papertags-app/internal/models"
	"github.com/papertags/smart-papertags-app/internal/services/scans"
	"github.com/papertags/smart-papertags-app/internal/services/tags"
	"github.com/papertags/smart-papertags-app/internal/storage/pgtags"
)

type stubTagService struct{}

func (stubTagService) Generate(ctx context.Context, adminID *uint64) (*models.Tag, error) {
	return nil, tags.ErrUnsupported
}

func (stubTagService) Assign(ctx context.Context, publicID string) (*models.Tag, error) {
	return nil, tags.ErrTagNotFound
}

func (stubTagService) Unassign(ctx context.Context, publicID string) error {
	return tags.ErrUnsupported
}

func (stubTagService) Claim(ctx context.Context, req tags.ClaimRequest) (*models.Tag, error) {
	return nil, tags.ErrTagNotFound
}

func (stubTagService) Delete(ctx context.Context, publicID string) error {
	return tags.ErrTagNotFound
}

func (stubTagService) UpdateContact(ctx context.Context, publicID string, ownerID uint64, ch pgtags.ContactChanges) (*models.Tag, error) {
	return nil, tags.ErrTagNotFound
}

func (stubTagService) GetBySecretID(ctx context.Context, secretID string) (*models.Tag, error) {
	return nil, tags.ErrTagNotFound
}

func (stubTagService) ListByOwner(ctx context.Context, ownerID uint64) ([]models.Tag, error) {
	return nil, nil
}

func (stubTagService) ListAll(ctx context.Context) ([]models.Tag, error) {
	return nil, nil
}

func (stubTagService) ScanHistory(ctx context.Context, publicID string, ownerID uint64, limit, offset uint64) ([]models.ScanEvent, error) {
	return nil, tags.ErrTagNotFound
}

func (stubTagService) Register(ctx context.Context, req tags.RegisterRequest) (*models.Account, error) {
	return nil, tags.ErrEmailTaken
}

func (stubTagService) Authenticate(ctx context.Context, email, password string, requireAdmin bool) (*models.Account, error) {
	return nil, tags.ErrCredentialMismatch
}

type stubTagSource struct{}

func (stubTagSource) GetTagBySecretID(ctx context.Context, secretID string) (*models.Tag, error) {
	return nil, pgtags.ErrNotFound
}

func (stubTagSource) GetTagByPublicID(ctx context.Context, publicID string) (*models.Tag, error) {
	return nil, pgtags.ErrNotFound
}

type stubScanLog struct{}

func (stubScanLog) InsertScanEvent(ctx context.Context, ev *models.ScanEvent) error { return nil }

type stubProducer struct{}

func (stubProducer) Publish(ctx context.Context, topic string, key, value []byte) error { return nil }

func TestRunTagAPI_ServesAndShutsDown(t *testing.T) {
	dir := t.TempDir()
	swaggerPath := filepath.Join(dir, "swagger.json")
	require.NoError(t, os.WriteFile(swaggerPath, []byte(`{"openapi":"3.0.0"}`), 0o600))

	resolver := geoip.NewResolver(geoip.NewStaticClient("Local Network", "Local Area", "Local"), nil, time.Minute, time.Second)
	pipeline := scans.NewPipeline(stubTagSource{}, stubScanLog{}, resolver, stubProducer{}, "tag.found.v1", 2)
	tokens := auth.NewTokens("test-secret", time.Hour)
	api := tagsapi.NewAPI(stubTagService{}, pipeline, resolver, tokens, nil, 0, "http://localhost", swaggerPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrCh := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- runTagAPI(ctx, tagAPIOpts{
			httpAddr:    "127.0.0.1:0",
			swaggerPath: swaggerPath,
			onListen:    func(addr string) { addrCh <- addr },
		}, api, pipeline)
	}()

	var addr string
	select {
	case addr = <-addrCh:
	case err := <-done:
		t.Fatalf("server exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + addr + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get("http://" + addr + "/swagger.json")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunTagAPI_MissingSwagger(t *testing.T) {
	resolver := geoip.NewResolver(geoip.NewStaticClient("Local Network", "Local Area", "Local"), nil, time.Minute, time.Second)
	pipeline := scans.NewPipeline(stubTagSource{}, stubScanLog{}, resolver, stubProducer{}, "tag.found.v1", 2)
	tokens := auth.NewTokens("test-secret", time.Hour)
	api := tagsapi.NewAPI(stubTagService{}, pipeline, resolver, tokens, nil, 0, "http://localhost", "")

	err := runTagAPI(context.Background(), tagAPIOpts{httpAddr: "127.0.0.1:0"}, api, pipeline)
	require.Error(t, err)

	err = runTagAPI(context.Background(), tagAPIOpts{httpAddr: "127.0.0.1:0", swaggerPath: "/does/not/exist.json"}, api, pipeline)
	require.Error(t, err)
}
