//go:build integration

package rabbit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"strings"
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
)

// TestIntegrationPublishAndConsume publishes through the fx wired publisher
// and reads the message back with a consumer.
func TestIntegrationPublishAndConsume(t *testing.T) {
	ctx := context.Background()
	host, port, _ := startRabbitMQ(t, ctx)

	var (
		manager   *ConnectionManager
		publisher MessagePublisher
	)
	app := fxtest.New(t,
		FXModule,
		fx.Provide(
			func() Config { return integrationConfig(host, port) },
			func() Logger { return quietLogger(t, nil) },
		),
		fx.Populate(&manager, &publisher),
	)
	app.RequireStart()
	defer app.RequireStop()

	require.True(t, manager.IsConnected())
	require.True(t, publisher.Publish(ctx, "game_events", map[string]interface{}{"type": "created", "gameId": 101}))

	received := make(chan Message, 1)
	c := NewConsumer(manager, "game_events")
	c.Handle("game_events", func(_ context.Context, msg Message) error {
		received <- msg
		return nil
	})
	runConsumer(t, c)

	select {
	case msg := <-received:
		assert.JSONEq(t, `{"type":"created","gameId":101}`, string(msg.Body()))
		assert.NotEmpty(t, msg.MessageID())
		assert.Equal(t, 1, msg.DeliveryCount())
	case <-time.After(10 * time.Second):
		t.Fatal("message was not consumed")
	}
}

// TestIntegrationMessagesSurviveBrokerRestart publishes, restarts the broker
// and expects the persistent message in the durable queue afterwards. The
// manager reconnects on its own.
func TestIntegrationMessagesSurviveBrokerRestart(t *testing.T) {
	ctx := context.Background()
	host, port, instance := startRabbitMQ(t, ctx)

	cfg := integrationConfig(host, port)
	cfg.Channel.ReconnectDelay = time.Second
	m := NewConnectionManager(cfg, WithLogger(quietLogger(t, nil)))
	require.NoError(t, m.Start(ctx))
	t.Cleanup(func() { _ = m.GracefulShutdown(context.Background()) })

	p := NewPublisher(m)
	require.True(t, p.Publish(ctx, "image_processing", map[string]interface{}{"gameId": 7, "imageUrl": "https://img.example/7.png"}))

	timeout := 10 * time.Second
	require.NoError(t, instance.Stop(ctx, &timeout))
	require.Eventually(t, func() bool { return !m.IsConnected() }, 30*time.Second, 100*time.Millisecond)
	assert.False(t, p.Publish(ctx, "image_processing", []byte(`{"gameId":8}`)))

	require.NoError(t, instance.Start(ctx))
	waitForPort(t, host, port)
	require.Eventually(t, m.IsConnected, 60*time.Second, 500*time.Millisecond)

	received := make(chan Message, 1)
	c := NewConsumer(m, "image_processing")
	c.Handle("image_processing", func(_ context.Context, msg Message) error {
		received <- msg
		return nil
	})
	runConsumer(t, c)

	select {
	case msg := <-received:
		assert.JSONEq(t, `{"gameId":7,"imageUrl":"https://img.example/7.png"}`, string(msg.Body()))
	case <-time.After(15 * time.Second):
		t.Fatal("persistent message lost across broker restart")
	}
}

// TestIntegrationRedeclareIsIdempotent starts two managers against the same
// broker. The second declaration of the same durable queues must succeed.
func TestIntegrationRedeclareIsIdempotent(t *testing.T) {
	ctx := context.Background()
	host, port, _ := startRabbitMQ(t, ctx)

	for i := 0; i < 2; i++ {
		m := NewConnectionManager(integrationConfig(host, port), WithLogger(quietLogger(t, nil)))
		require.NoError(t, m.Start(ctx), "manager %d", i)
		assert.True(t, m.IsConnected())
		require.NoError(t, m.Reconnect(ctx))
		require.NoError(t, m.GracefulShutdown(ctx))
	}
}

func TestIntegrationFailFastAgainstClosedPort(t *testing.T) {
	port, err := getFreePort()
	require.NoError(t, err)

	cfg := integrationConfig("127.0.0.1", port)
	cfg.Startup.MaxAttempts = 2
	cfg.Startup.RetryDelay = 100 * time.Millisecond
	m := NewConnectionManager(cfg, WithLogger(quietLogger(t, nil)))
	defer m.GracefulShutdown(context.Background())

	err = m.Start(context.Background())
	var startupErr *StartupConnectError
	require.ErrorAs(t, err, &startupErr)
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func integrationConfig(host string, port int) Config {
	return Config{
		Connection: Connection{
			URI:            fmt.Sprintf("amqp://guest:guest@%s/", net.JoinHostPort(host, strconv.Itoa(port))),
			ConnectionName: "catalog-events-integration",
		},
		Channel: Channel{
			Queues:                []string{"game_events", "image_processing", "metadata_enrichment"},
			PrefetchCount:         1,
			ReconnectDelay:        500 * time.Millisecond,
			PublishConfirmTimeout: 5 * time.Second,
		},
		Startup: Startup{
			MaxAttempts: 10,
			RetryDelay:  time.Second,
			FailFast:    true,
		},
	}
}

// startRabbitMQ runs a broker bound to a fixed host port so that a restarted
// container is reachable at the same address.
func startRabbitMQ(t *testing.T, ctx context.Context) (string, int, testcontainers.Container) {
	t.Helper()

	hostPort, err := getFreePort()
	require.NoError(t, err)

	instance, err := createRabbitMQContainer(ctx, strconv.Itoa(hostPort))
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := instance.Terminate(context.Background()); err != nil {
			log.Printf("failed to terminate RabbitMQ container: %v", err)
		}
	})

	host, err := instance.Host(ctx)
	require.NoError(t, err)
	waitForPort(t, host, hostPort)
	return host, hostPort, instance
}

func createRabbitMQContainer(ctx context.Context, hostPort string) (testcontainers.Container, error) {
	var lastErr error

	for attempt := 0; attempt < 3; attempt++ {
		req := testcontainers.ContainerRequest{
			Image:        "rabbitmq:4-management",
			ExposedPorts: []string{"5672/tcp"},
			HostConfigModifier: func(cfg *container.HostConfig) {
				cfg.PortBindings = nat.PortMap{
					"5672/tcp": []nat.PortBinding{{HostPort: hostPort}},
				}
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5672/tcp").WithStartupTimeout(60*time.Second),
				wait.ForExec([]string{"rabbitmq-diagnostics", "check_running"}).WithExitCodeMatcher(func(exitCode int) bool {
					return exitCode == 0
				}).WithStartupTimeout(30*time.Second),
			),
		}

		instance, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err == nil {
			return instance, nil
		}
		lastErr = err

		if strings.Contains(err.Error(), "docker.sock") || errors.Is(err, io.EOF) {
			log.Printf("Attempt %d: Docker socket error, retrying: %v", attempt+1, err)
			time.Sleep(time.Duration(attempt+1) * time.Second)
			continue
		}
		break
	}

	return nil, fmt.Errorf("failed to start RabbitMQ container after 3 attempts: %w", lastErr)
}

func waitForPort(t *testing.T, host string, port int) {
	t.Helper()
	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), 2*time.Second)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 60*time.Second, 500*time.Millisecond, "RabbitMQ port not ready")
}

func getFreePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}
