//go:build integration

package modelstore

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/Aleph-Alpha/wordembed/v1/observability"
)

// createMinIOContainer starts a MinIO server on a free host port.
func createMinIOContainer(ctx context.Context) (testcontainers.Container, string, string, error) {
	port, err := getFreePort()
	if err != nil {
		return nil, "", "", fmt.Errorf("could not get free port: %w", err)
	}

	portStr := fmt.Sprintf("%d", port)
	portBindings := nat.PortMap{
		"9000/tcp": []nat.PortBinding{{HostPort: portStr}},
	}

	req := testcontainers.ContainerRequest{
		Image: "minio/minio:RELEASE.2024-01-16T16-07-38Z",
		Cmd:   []string{"server", "/data"},
		Env: map[string]string{
			"MINIO_ACCESS_KEY": "minio_admin",
			"MINIO_SECRET_KEY": "minio_admin",
		},
		ExposedPorts: []string{"9000/tcp"},
		HostConfigModifier: func(cfg *container.HostConfig) {
			cfg.PortBindings = portBindings
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("9000/tcp").WithStartupTimeout(20*time.Second),
			wait.ForHTTP("/minio/health/ready").WithPort("9000/tcp").WithStartupTimeout(20*time.Second),
		),
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to start MinIO container: %w", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, "", "", fmt.Errorf("failed to get host: %w", err)
	}
	return c, host, portStr, nil
}

func getFreePort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func newIntegrationConfig(host, port string) *Config {
	return &Config{
		Connection: Connection{
			Endpoint:        net.JoinHostPort(host, port),
			AccessKeyID:     "minio_admin",
			SecretAccessKey: "minio_admin",
			BucketName:      "models",
			Region:          "us-east-1",
		},
		Prefix:           "fasttext",
		OperationTimeout: 10 * time.Second,
	}
}

type recordingObserver struct {
	ops []observability.OperationContext
}

func (r *recordingObserver) ObserveOperation(ctx observability.OperationContext) {
	r.ops = append(r.ops, ctx)
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, host, port, err := createMinIOContainer(ctx)
	require.NoError(t, err)
	defer func() { _ = c.Terminate(ctx) }()

	obs := &recordingObserver{}
	store, err := NewClient(newIntegrationConfig(host, port), nil)
	require.NoError(t, err)
	store.WithObserver(obs)

	dir := t.TempDir()
	output := filepath.Join(dir, "model")
	require.NoError(t, os.WriteFile(output+".bin", []byte("binary model"), 0o644))
	require.NoError(t, os.WriteFile(output+".vec", []byte("1 1\na 0.5\n"), 0o644))

	keys, err := store.UploadModel(ctx, output)
	require.NoError(t, err)
	assert.Equal(t, []string{"fasttext/model.bin", "fasttext/model.vec"}, keys)

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"model.bin", "model.vec"}, names)

	local := filepath.Join(dir, "fetched.bin")
	size, err := store.Fetch(ctx, "model.bin", local)
	require.NoError(t, err)
	assert.Equal(t, int64(len("binary model")), size)

	rc, err := store.Opener(ctx)("model.vec")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "1 1\na 0.5\n", string(data))

	_, err = store.Opener(ctx)("missing.bin")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	_, err = store.Fetch(ctx, "missing.bin", filepath.Join(dir, "missing.bin"))
	assert.ErrorIs(t, err, ErrObjectNotFound)

	require.NoError(t, store.Delete(ctx, "model.vec"))
	names, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"model.bin"}, names)

	require.NotEmpty(t, obs.ops)
	assert.Equal(t, "modelstore", obs.ops[0].Component)
	assert.Equal(t, "models", obs.ops[0].Resource)
}

func TestFXModuleConnects(t *testing.T) {
	ctx := context.Background()
	c, host, port, err := createMinIOContainer(ctx)
	require.NoError(t, err)
	defer func() { _ = c.Terminate(ctx) }()

	cfg := newIntegrationConfig(host, port)
	var store *Store
	app := fxtest.New(t,
		fx.Provide(NewClientWithDI),
		fx.Supply(cfg),
		fx.Populate(&store),
	)
	app.RequireStart()
	defer app.RequireStop()

	assert.Equal(t, "models", store.Bucket())
}
