package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hupe1980/costmesh/a2a"
	"github.com/hupe1980/costmesh/internal/util"
	"github.com/hupe1980/costmesh/logging"
	"github.com/hupe1980/costmesh/task"
)

// Server exposes one agent over the a2a wire protocol: the card on the
// well-known path, the JSON-RPC task boundary on POST /, and a health
// side-channel for process supervision.
type Server struct {
	card   a2a.AgentCard
	exec   Executor
	store  *task.Store
	logger logging.Logger
}

// ServerOptions configure a Server.
type ServerOptions struct {
	Logger logging.Logger
	Store  *task.Store
}

// NewServer constructs a server for the given executor and card.
func NewServer(card a2a.AgentCard, exec Executor, optFns ...func(o *ServerOptions)) *Server {
	opts := ServerOptions{
		Logger: logging.NoOpLogger{},
		Store:  task.NewStore(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Server{
		card:   card,
		exec:   exec,
		store:  opts.Store,
		logger: opts.Logger.With("agent", card.Name),
	}
}

// Handler returns the HTTP handler serving the protocol surface.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get(a2a.AgentCardWellKnownPath, s.handleCard)
	r.Get("/health", s.handleHealth)
	r.Post("/", s.handleRPC)

	return r
}

// ListenAndServe runs the server on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("agent.server.listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleCard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.card)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s.card.Name + " is running!"))
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req a2a.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "", a2a.CodeParseError, "cannot parse request")
		return
	}
	if req.JSONRPC != "2.0" {
		s.writeError(w, req.ID, a2a.CodeInvalidRequest, "jsonrpc must be 2.0")
		return
	}

	switch req.Method {
	case a2a.MethodMessageSend:
		s.handleMessageSend(w, req)
	case a2a.MethodTasksGet:
		s.handleTasksGet(w, req)
	case a2a.MethodTasksCancel:
		s.handleTasksCancel(w, req)
	default:
		s.writeError(w, req.ID, a2a.CodeMethodNotFound, "method not found: "+req.Method)
	}
}

// handleMessageSend creates the task and starts the executor asynchronously.
// The returned task is usually still non-terminal; callers poll tasks/get.
func (s *Server) handleMessageSend(w http.ResponseWriter, req a2a.Request) {
	var params a2a.MessageSendParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.writeError(w, req.ID, a2a.CodeInvalidParams, "invalid message/send params")
		return
	}
	if len(params.Message.Parts) == 0 {
		s.writeError(w, req.ID, a2a.CodeInvalidParams, "message has no parts")
		return
	}

	contextID := params.ContextID
	if contextID == "" {
		contextID = params.Message.ContextID
	}
	if contextID == "" {
		contextID = util.NewID()
	}

	mgr := task.NewManager(util.NewID(), contextID, func(o *task.ManagerOptions) {
		o.Logger = s.logger
	})
	if err := mgr.Submit(); err != nil {
		s.writeError(w, req.ID, a2a.CodeInternalError, "cannot create task")
		return
	}

	msg := params.Message
	msg.TaskID = mgr.ID()
	msg.ContextID = contextID
	_ = mgr.AddMessage(msg)

	if err := s.store.Add(mgr); err != nil {
		s.writeError(w, req.ID, a2a.CodeInternalError, "cannot register task")
		return
	}

	s.logger.Info("agent.task.accepted", "task_id", mgr.ID(), "context_id", contextID)

	go s.exec.Execute(context.Background(), mgr, msg)

	s.writeResult(w, req.ID, mgr.Task())
}

func (s *Server) handleTasksGet(w http.ResponseWriter, req a2a.Request) {
	mgr, ok := s.lookupTask(w, req)
	if !ok {
		return
	}
	s.writeResult(w, req.ID, mgr.Task())
}

func (s *Server) handleTasksCancel(w http.ResponseWriter, req a2a.Request) {
	mgr, ok := s.lookupTask(w, req)
	if !ok {
		return
	}

	s.exec.CancelTask(mgr.ID())

	// The executor's cancel path races with this direct transition; whichever
	// lands first wins, the loser's InvalidTransition is expected.
	if err := mgr.Cancel("Task was canceled on request."); err != nil && !errors.Is(err, task.ErrInvalidTransition) {
		s.writeError(w, req.ID, a2a.CodeInternalError, err.Error())
		return
	}

	s.writeResult(w, req.ID, mgr.Task())
}

func (s *Server) lookupTask(w http.ResponseWriter, req a2a.Request) (*task.Manager, bool) {
	var params a2a.TaskIDParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.ID == "" {
		s.writeError(w, req.ID, a2a.CodeInvalidParams, "invalid task params")
		return nil, false
	}
	mgr, err := s.store.Get(params.ID)
	if err != nil {
		s.writeError(w, req.ID, a2a.CodeTaskNotFound, "task not found: "+params.ID)
		return nil, false
	}
	return mgr, true
}

func (s *Server) writeResult(w http.ResponseWriter, id string, result any) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		s.writeError(w, id, a2a.CodeInternalError, "cannot marshal result")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(a2a.Response{JSONRPC: "2.0", ID: id, Result: resultJSON})
}

func (s *Server) writeError(w http.ResponseWriter, id string, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(a2a.Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &a2a.Error{Code: code, Message: msg},
	})
}
