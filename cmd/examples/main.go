package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/rimmartin/loom/filesystem"
	loomhttp "github.com/rimmartin/loom/http"
	"github.com/rimmartin/loom/mail"
	"github.com/rimmartin/loom/netsock"
	"github.com/rimmartin/loom/scheduler"
	"github.com/rimmartin/loom/session/storage"
	"github.com/rimmartin/loom/validation"
)

const name = "github.com/rimmartin/loom/cmd/examples"

var (
	tracer trace.Tracer
	meter  metric.Meter
	logger *slog.Logger
)

func init() {
	os.Setenv("OTEL_SERVICE_NAME", "loom-examples")
	os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "service.namespace=loom,deployment.environment=development")

	tracer = otel.Tracer(name)
	meter = otel.Meter(name)
	logger = otelslog.NewLogger(name)
}

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatalln(err)
	}
}

func run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	srv, err := loomhttp.New(nil, logger)
	if err != nil {
		return err
	}

	greetings, err := meter.Int64Counter("examples.greetings_served")
	if err != nil {
		return err
	}

	store := storage.NewMemorySessionStore()
	srv.Filter(loomhttp.EnforceCookieFilter())
	srv.Use(loomhttp.SessionUse(store))

	srv.On("GET", "/hello", func(req *loomhttp.Request, res *loomhttp.Response) {
		_, span := tracer.Start(req.Context(), "hello")
		defer span.End()
		greetings.Add(req.Context(), 1)
		res.WithText("hello world")
	})

	// /greet/:name and /greet/* both register; the specific one runs
	// first and yields on an empty name. The router never matches :name
	// against an empty segment, so /greet itself and deeper paths such
	// as /greet/a/b are what reach the catchall.
	srv.On("GET", "/greet/:name", func(req *loomhttp.Request, res *loomhttp.Response) {
		if req.Param("name") == "" {
			req.Yield()
			return
		}
		res.WithText("hello, " + req.Param("name"))
	})
	srv.On("GET", "/greet/*", func(req *loomhttp.Request, res *loomhttp.Response) {
		res.WithStatus(loomhttp.StatusNotFound).WithText("no name given")
	})

	srv.On("GET", "/whoami", func(req *loomhttp.Request, res *loomhttp.Response) {
		sess, ok := req.Session()
		if !ok {
			res.WithStatus(loomhttp.StatusUnauthorized).WithText("no session cookie")
			return
		}
		res.WithJSON(map[string]any{"session_id": sess.GetId()})
	})

	registerRules := map[string][]string{
		"email": {"required", "email"},
		"name":  {"required"},
	}

	mailer, err := newWelcomeMailer()
	if err != nil {
		return err
	}

	srv.On("POST", "/users", func(req *loomhttp.Request, res *loomhttp.Response) {
		var body map[string]any
		if err := req.JSON(&body); err != nil {
			res.WithStatus(loomhttp.StatusBadRequest).WithText("malformed json body")
			return
		}

		violations := validation.ValidateMap(body, registerRules)
		if !violations.IsEmpty() {
			encoded, _ := json.Marshal(violations)
			res.WithStatus(loomhttp.StatusUnprocessableEntity).WithBytes("application/json", encoded)
			return
		}

		email, _ := body["email"].(string)
		name, _ := body["name"].(string)
		welcome := mail.New().
			WithReceivers(email).
			WithSubject("Welcome").
			WithText("Hi " + name + ", your account is ready.")
		if err := mailer.Send(req.Context(), welcome); err != nil {
			logger.Warn("welcome mail failed to send", "error", err, "to", email)
		}

		res.WithStatus(loomhttp.StatusCreated).WithJSON(map[string]any{"name": name})
	})

	// A large upload streamed straight through instead of buffered: the
	// response is only built once the isFinal call arrives, since Stream
	// defers the response until then.
	srv.On("POST", "/upload", func(req *loomhttp.Request, res *loomhttp.Response) {
		var received int
		res.OnAborted(func() {
			logger.Warn("upload aborted", "bytes_received", received)
		})
		req.Stream(func(chunk []byte, isFinal bool) {
			received += len(chunk)
			if isFinal {
				res.WithJSON(map[string]any{"bytes_received": received})
			}
		})
	})

	fs := filesystem.NewLocalFileSystem("static")
	srv.On("GET", "/static/:name", func(req *loomhttp.Request, res *loomhttp.Response) {
		data, err := fs.ReadFile(req.Param("name"))
		if err != nil {
			res.WithStatus(loomhttp.StatusNotFound).WithText("not found")
			return
		}
		res.WithBytes("application/octet-stream", data)
	})

	srv.OnUpgrade(func(sock *netsock.Socket) {
		// A protocol handoff target (e.g. a WebSocket frame reader)
		// would take ownership of sock's raw connection here.
	})

	jobs := scheduler.NewScheduler().WithLogger(logger)
	jobs.AddJob(*scheduler.NewJob().
		WithInterval(time.Minute).
		WithTasks(*scheduler.NewTask(func() {
			logger.Info("heartbeat")
		})))
	jobs.AddJob(*scheduler.NewJob().
		WithInterval(5 * time.Minute).
		WithTasks(*scheduler.NewTask(func() {
			if removed := store.Prune(30 * time.Minute); removed > 0 {
				logger.Info("pruned idle sessions", "count", removed)
			}
		})))
	go jobs.Run(ctx)

	addr := "0.0.0.0"
	port := 8080

	logger.Info("listening", "addr", addr, "port", port)
	listener, err := srv.Listen(addr, port, loomhttp.ListenOptions{})
	if err != nil {
		return err
	}

	<-ctx.Done()

	listener.Close()
	srv.Free()
	return nil
}

// newWelcomeMailer builds the Microsoft Graph mailer used to send
// welcome mail on registration. Credentials come from the environment
// rather than a config file since this is the only component that needs
// them.
func newWelcomeMailer() (mail.Mailer, error) {
	tenantID := os.Getenv("LOOM_MS_TENANT_ID")
	clientID := os.Getenv("LOOM_MS_CLIENT_ID")
	clientSecret := os.Getenv("LOOM_MS_CLIENT_SECRET")
	userID := os.Getenv("LOOM_MS_SENDER_USER_ID")
	if tenantID == "" || clientID == "" || clientSecret == "" || userID == "" {
		return noopMailer{}, nil
	}
	return mail.NewMicrosoftMailer(tenantID, clientID, clientSecret, userID), nil
}

// noopMailer stands in for the real mailer when Microsoft Graph
// credentials aren't configured, so /users stays usable in local
// development without them.
type noopMailer struct{}

func (noopMailer) Send(ctx context.Context, mails ...mail.Mail) error { return nil }
