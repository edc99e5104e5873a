package testnats

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	sharedContainer *NATSContainer
	sharedOnce      sync.Once
)

type NATSContainer struct {
	Container testcontainers.Container
	URL       string
}

// SetupSharedNATS starts one NATS container per test binary.
// Call Cleanup once from the top-level test.
func SetupSharedNATS(t *testing.T) *NATSContainer {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping NATS container in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	sharedOnce.Do(func() {
		ctx := context.Background()

		req := testcontainers.ContainerRequest{
			Image:        "nats:2.10-alpine",
			ExposedPorts: []string{"4222/tcp"},
			WaitingFor:   wait.ForListeningPort("4222/tcp"),
		}

		natsContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		require.NoError(t, err)

		host, err := natsContainer.Host(ctx)
		require.NoError(t, err)

		port, err := natsContainer.MappedPort(ctx, "4222")
		require.NoError(t, err)

		sharedContainer = &NATSContainer{
			Container: natsContainer,
			URL:       "nats://" + host + ":" + port.Port(),
		}
	})

	require.NotNil(t, sharedContainer, "nats container failed to start")
	return sharedContainer
}

func (nc *NATSContainer) Cleanup(t *testing.T) {
	t.Helper()

	if nc.Container != nil {
		if err := nc.Container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
}

func (nc *NATSContainer) Connect(t *testing.T) *nats.Conn {
	t.Helper()

	conn, err := nats.Connect(nc.URL)
	require.NoError(t, err)

	t.Cleanup(func() { conn.Close() })

	return conn
}

// Subscribe returns a channel receiving every message published on subject.
// The subscription is flushed before returning so no early message is lost.
func (nc *NATSContainer) Subscribe(t *testing.T, subject string) <-chan *nats.Msg {
	t.Helper()

	conn := nc.Connect(t)
	received := make(chan *nats.Msg, 16)
	_, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		received <- msg
	})
	require.NoError(t, err)
	require.NoError(t, conn.FlushTimeout(2*time.Second))

	return received
}
