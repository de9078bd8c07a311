package realtime

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	socket "github.com/zishang520/socket.io/socket"
	"gorm.io/gorm"

	"github.com/mo-amir99/elearning-server-go/internal/middleware"
	jwtutil "github.com/mo-amir99/elearning-server-go/internal/utils/jwt"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

// Event names pushed to clients.
const (
	EventConnectionConfirmed = "connectionConfirmed"
	EventProgressUpdated     = "progressUpdated"
	EventCourseCompleted     = "courseCompleted"
	EventLeaderboardChanged  = "leaderboardChanged"
)

// Server wraps the Socket.IO server that pushes progress and leaderboard updates.
type Server struct {
	io        *socket.Server
	db        *gorm.DB
	logger    *slog.Logger
	jwtSecret string

	heartbeatStop chan struct{}
	heartbeatWG   sync.WaitGroup

	connMutex   sync.RWMutex
	connections map[string]*socket.Socket
}

// NewServer creates a new Socket.IO server.
func NewServer(db *gorm.DB, logger *slog.Logger, jwtSecret string) *Server {
	opts := socket.DefaultServerOptions()
	opts.SetPingTimeout(60 * time.Second)
	opts.SetPingInterval(25 * time.Second)
	opts.SetServeClient(false)
	opts.SetPath("/socket.io")

	s := &Server{
		io:          socket.NewServer(nil, opts),
		db:          db,
		logger:      logger,
		jwtSecret:   jwtSecret,
		connections: make(map[string]*socket.Socket),
	}

	s.setupEventHandlers()
	s.startHeartbeat()
	return s
}

// Handler returns the HTTP handler for Socket.IO.
func (s *Server) Handler() http.Handler {
	return s.io.ServeHandler(nil)
}

// Connections reports the number of open sockets.
func (s *Server) Connections() int {
	s.connMutex.RLock()
	defer s.connMutex.RUnlock()
	return len(s.connections)
}

// Close shuts down the Socket.IO server.
func (s *Server) Close() error {
	if stop := s.heartbeatStop; stop != nil {
		close(stop)
		s.heartbeatWG.Wait()
		s.heartbeatStop = nil
	}

	done := make(chan struct{})
	s.io.Close(func() {
		close(done)
	})
	<-done
	return nil
}

// ProgressPayload is pushed to the learner and their company whenever a completion changes.
type ProgressPayload struct {
	UserID          uuid.UUID `json:"userId"`
	CourseID        uuid.UUID `json:"courseId"`
	VideoID         uuid.UUID `json:"videoId"`
	Completed       bool      `json:"completed"`
	CompletedVideos int       `json:"completedVideos"`
	TotalVideos     int       `json:"totalVideos"`
	Percentage      int       `json:"percentage"`
	PointsDelta     int       `json:"pointsDelta"`
}

// EmitProgress notifies the learner's sockets and, for workers, their company's sockets.
func (s *Server) EmitProgress(companyID *uuid.UUID, payload ProgressPayload) {
	s.emitTo(userRoom(payload.UserID), EventProgressUpdated, payload)
	if companyID != nil {
		s.emitTo(companyRoom(*companyID), EventProgressUpdated, payload)
	}
}

// EmitCourseCompleted tells the learner they finished a course.
func (s *Server) EmitCourseCompleted(userID, courseID uuid.UUID, bonus int) {
	s.emitTo(userRoom(userID), EventCourseCompleted, map[string]any{
		"courseId":  courseID,
		"bonus":     bonus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// EmitLeaderboardChanged tells leaderboard subscribers to refetch.
func (s *Server) EmitLeaderboardChanged(reason string) {
	s.emitTo(leaderboardRoom, EventLeaderboardChanged, map[string]any{
		"reason":    reason,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) emitTo(room socket.Room, event string, payload any) {
	if err := s.io.To(room).Emit(event, payload); err != nil {
		s.logger.Warn("failed to emit", slog.String("event", event), slog.String("room", string(room)), slog.String("error", err.Error()))
	}
}

func (s *Server) setupEventHandlers() {
	s.io.Use(s.connectionMiddleware)
	s.io.On("connection", func(args ...any) {
		sock, ok := args[0].(*socket.Socket)
		if !ok {
			s.logger.Error("unexpected connection payload", slog.Any("payload", args))
			return
		}
		s.handleConnection(sock)
	})
}

func (s *Server) connectionMiddleware(sock *socket.Socket, next func(*socket.ExtendedError)) {
	token := extractToken(sock)
	if token == "" {
		s.logger.Warn("socket connection rejected: missing token")
		next(socket.NewExtendedError("missing authentication token", map[string]any{"code": "MISSING_TOKEN"}))
		return
	}

	claims, err := jwtutil.VerifyToken(token, s.jwtSecret)
	if err != nil || claims.Purpose != "" {
		s.logger.Warn("socket connection rejected: invalid token")
		next(socket.NewExtendedError("invalid token", map[string]any{"code": "INVALID_TOKEN"}))
		return
	}

	var usr middleware.User
	if err := s.db.First(&usr, "id = ?", claims.UserID).Error; err != nil {
		s.logger.Warn("socket connection rejected: user not found", slog.Any("userId", claims.UserID), slog.String("error", err.Error()))
		next(socket.NewExtendedError("user not found", map[string]any{"code": "USER_NOT_FOUND"}))
		return
	}
	if !usr.Active {
		next(socket.NewExtendedError("account is deactivated", map[string]any{"code": "ACCOUNT_DISABLED"}))
		return
	}

	sock.SetData(&usr)
	next(nil)
}

func (s *Server) handleConnection(sock *socket.Socket) {
	usr := userFromSocket(sock)
	if usr == nil {
		s.logger.Error("connection established without user context")
		sock.Disconnect(true)
		return
	}

	s.connMutex.Lock()
	s.connections[string(sock.Id())] = sock
	s.connMutex.Unlock()

	s.logger.Info("WebSocket connected",
		slog.String("userId", usr.ID.String()),
		slog.String("role", usr.Role.String()),
		slog.String("connId", string(sock.Id())),
	)

	sock.Join(userRoom(usr.ID))
	switch {
	case usr.Role == types.RoleCompany:
		sock.Join(companyRoom(usr.ID))
	case usr.Role == types.RoleAdmin:
		sock.Join(adminRoom)
	}

	if err := sock.Emit(EventConnectionConfirmed, map[string]any{
		"userId":    usr.ID.String(),
		"userName":  usr.FullName,
		"role":      usr.Role,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		s.logger.Warn("failed to emit connection confirmation", slog.String("error", err.Error()))
	}

	s.registerEventHandlers(sock)
}

func (s *Server) registerEventHandlers(sock *socket.Socket) {
	sock.On("subscribeLeaderboard", func(args ...any) {
		sock.Join(leaderboardRoom)
	})

	sock.On("unsubscribeLeaderboard", func(args ...any) {
		sock.Leave(leaderboardRoom)
	})

	sock.On("pong", func(args ...any) {
		if len(args) > 0 {
			s.logger.Debug("pong received", slog.Any("value", args[0]))
		}
	})

	sock.On("disconnect", func(args ...any) {
		reason := "client"
		if len(args) > 0 {
			if r, ok := args[0].(string); ok {
				reason = r
			}
		}

		s.connMutex.Lock()
		delete(s.connections, string(sock.Id()))
		s.connMutex.Unlock()

		if usr := userFromSocket(sock); usr != nil {
			s.logger.Info("WebSocket disconnected", slog.String("userId", usr.ID.String()), slog.String("reason", reason))
		}
	})
}

func (s *Server) startHeartbeat() {
	s.heartbeatStop = make(chan struct{})
	s.heartbeatWG.Add(1)

	go func() {
		defer s.heartbeatWG.Done()
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sendHeartbeat()
			case <-s.heartbeatStop:
				return
			}
		}
	}()
}

func (s *Server) sendHeartbeat() {
	timestamp := time.Now().Unix()

	s.connMutex.RLock()
	defer s.connMutex.RUnlock()

	for id, sock := range s.connections {
		if err := sock.Emit("ping", timestamp); err != nil {
			s.logger.Debug("heartbeat emit failed", slog.String("connId", id), slog.String("error", err.Error()))
		}
	}
}

func userFromSocket(sock *socket.Socket) *middleware.User {
	if sock == nil {
		return nil
	}
	if data, ok := sock.Data().(*middleware.User); ok {
		return data
	}
	return nil
}

func extractToken(sock *socket.Socket) string {
	if sock == nil {
		return ""
	}

	if hs := sock.Handshake(); hs != nil {
		if authMap, ok := hs.Auth.(map[string]any); ok {
			if token, ok := authMap["token"].(string); ok && token != "" {
				return token
			}
		}
		if hs.Query != nil {
			if token, ok := hs.Query.Get("token"); ok && token != "" {
				return token
			}
		}
	}
	return ""
}

const (
	leaderboardRoom socket.Room = "leaderboard"
	adminRoom       socket.Room = "admins"
)

func userRoom(id uuid.UUID) socket.Room {
	return socket.Room("user_" + id.String())
}

func companyRoom(id uuid.UUID) socket.Room {
	return socket.Room("company_" + id.String())
}
