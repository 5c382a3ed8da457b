package service

import (
	"net/http"

	"github.com/gofiber/fiber/v3"
	fiberadaptor "github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/theapemachine/taskflow-go/pkg/service/sse"
)

/*
App is the HTTP server. Safe for concurrent use: the manager and broker
carry their own locks, and handlers never share mutable state.
*/
type App struct {
	app     *fiber.App
	manager *Manager
	broker  *sse.Broker
}

func NewApp(manager *Manager, broker *sse.Broker) *App {
	srv := &App{
		app: fiber.New(fiber.Config{
			AppName:      "taskflow",
			ServerHeader: "TaskFlow-Server",
		}),
		manager: manager,
		broker:  broker,
	}

	srv.app.Use(logger.New(logger.Config{
		// Skip logging for the /events endpoint to reduce noise
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/events"
		},
	}), healthcheck.NewHealthChecker())

	srv.app.Get("/", srv.handleRoot)
	srv.app.Get("/events", srv.handleEvents)
	srv.app.Post("/api/tasks", srv.handleSubmit)
	srv.app.Get("/api/tasks/:id", srv.handleTask)
	srv.app.Post("/api/knowledge", srv.handleKnowledge)

	return srv
}

func (srv *App) Start(addr string) error {
	return srv.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown drains the HTTP server and disconnects every event subscriber.
func (srv *App) Shutdown() error {
	srv.broker.Close()
	return srv.app.Shutdown()
}

// Test dispatches a request through the app without a network listener.
func (srv *App) Test(req *http.Request) (*http.Response, error) {
	return srv.app.Test(req)
}

func (srv *App) handleRoot(ctx fiber.Ctx) error {
	return ctx.SendString("OK")
}

func (srv *App) handleEvents(ctx fiber.Ctx) error {
	handler := func(w http.ResponseWriter, r *http.Request) {
		srv.broker.Subscribe(w, r)
	}

	return fiberadaptor.HTTPHandler(http.HandlerFunc(handler))(ctx)
}

type submitRequest struct {
	Prompt string `json:"prompt"`
}

func (srv *App) handleSubmit(ctx fiber.Ctx) error {
	var request submitRequest

	if err := ctx.Bind().Body(&request); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body: " + err.Error(),
		})
	}

	task, err := srv.manager.Submit(ctx.Context(), request.Prompt)

	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return ctx.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":  "accepted",
		"task_id": task.ID,
	})
}

func (srv *App) handleTask(ctx fiber.Ctx) error {
	task, ok := srv.manager.Task(ctx.Params("id"))

	if !ok {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "task not found",
		})
	}

	return ctx.JSON(task.Snapshot())
}

type knowledgeRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

func (srv *App) handleKnowledge(ctx fiber.Ctx) error {
	var request knowledgeRequest

	if err := ctx.Bind().Body(&request); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body: " + err.Error(),
		})
	}

	if err := srv.manager.AddKnowledge(request.Name, request.Content); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return ctx.JSON(fiber.Map{"status": "stored"})
}
