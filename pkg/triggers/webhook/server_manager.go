package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v3"
)

const routePrefix = "/webhooks"

// ServerManager owns the HTTP server shared by all webhook triggers. Each
// process or run owns its own manager; triggers register their paths while
// running.
type ServerManager struct {
	app    *fiber.App
	mu     sync.RWMutex
	routes map[string]*Trigger
	logger *slog.Logger
}

func NewServerManager(logger *slog.Logger) *ServerManager {
	manager := &ServerManager{
		routes: make(map[string]*Trigger),
		logger: logger.With("module", "webhook_server"),
	}

	app := fiber.New()
	app.All(routePrefix+"/*", manager.handle)
	manager.app = app

	return manager
}

func (m *ServerManager) Register(path string, trigger *Trigger) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.routes[path]; taken {
		return fmt.Errorf("webhook path %q is already registered", path)
	}

	m.routes[path] = trigger
	m.logger.Info("Registered webhook path", "path", path)

	return nil
}

func (m *ServerManager) Unregister(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.routes, path)
	m.logger.Info("Unregistered webhook path", "path", path)
}

func (m *ServerManager) handle(c fiber.Ctx) error {
	path := "/" + strings.TrimPrefix(c.Params("*"), "/")

	m.mu.RLock()
	trigger, ok := m.routes[path]
	m.mu.RUnlock()

	if !ok {
		return c.SendStatus(fiber.StatusNotFound)
	}

	if trigger.Method != "" && trigger.Method != c.Method() {
		return c.SendStatus(fiber.StatusMethodNotAllowed)
	}

	var body map[string]any
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body"})
		}
	}

	data := map[string]any{
		"path":    path,
		"method":  c.Method(),
		"body":    body,
		"headers": c.GetReqHeaders(),
	}

	trigger.Deliver(c.Context(), data)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "accepted"})
}

func (m *ServerManager) Start(port int) error {
	return m.app.Listen(fmt.Sprintf(":%d", port))
}

func (m *ServerManager) Shutdown(ctx context.Context) error {
	return m.app.ShutdownWithContext(ctx)
}

// App exposes the underlying fiber app so an embedding API server can mount
// webhook routes instead of running a second listener.
func (m *ServerManager) App() *fiber.App {
	return m.app
}
