package server

import (
	"context"
	"embed"
	"html/template"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"product-annotator/config"
	"product-annotator/pkg/service"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const maxUploadSize = 32 << 20

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Server 把界面事件以 HTTP 接口暴露出来
type Server struct {
	cfg        *config.AppConfig
	controller *service.SessionController
	httpServer *http.Server
}

func NewServer(cfg *config.AppConfig, controller *service.SessionController) *Server {
	s := &Server{
		cfg:        cfg,
		controller: controller,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler 注册全部路由
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/image", s.handleUploadImage)
	mux.HandleFunc("POST /api/sessions/{id}/events/{event}", s.handleEvent)
	mux.HandleFunc("POST /api/flush", s.handleFlush)
	return mux
}

// Run 启动监听，ctx 结束后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		zap.S().Infof("标注服务已启动: http://%s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return errors.Wrap(err, "HTTP 服务异常退出")
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	zap.S().Info("正在关闭 HTTP 服务...")
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, nil); err != nil {
		zap.S().Errorf("渲染页面失败: %v", err)
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.controller.CreateSession()
	writeJSON(w, http.StatusCreated, sess.View())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.controller.Session(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.controller.CloseSession(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// handleUploadImage 保存上传的图片并触发识别
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.controller.Session(id); err != nil {
		writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, errors.Wrap(errBadRequest, "缺少 image 文件"))
		return
	}
	defer file.Close()

	path, err := s.saveUpload(id, header.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}

	view, err := s.controller.Dispatch(r.Context(), id, service.EventProcessImage, service.Event{ImagePath: path})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) saveUpload(sessionID, filename string, src io.Reader) (string, error) {
	dir := filepath.Join(s.cfg.GetUploadDir(), sessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "创建上传目录失败")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	path := filepath.Join(dir, uuid.NewString()+ext)
	dst, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "保存上传图片失败")
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", errors.Wrap(err, "保存上传图片失败")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	values := make(map[string]interface{})
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&values); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, errors.Wrapf(errBadRequest, "请求体不是合法 JSON: %v", err))
			return
		}
	}
	view, err := s.controller.Dispatch(r.Context(), r.PathValue("id"), r.PathValue("event"), service.Event{Values: values})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	path, err := s.controller.Flush(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, flushResponse{Path: path})
}

type flushResponse struct {
	Path string `json:"path"`
}

type errorResponse struct {
	Error string `json:"error"`
}

var errBadRequest = errors.New("请求参数错误")

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrUnknownEvent):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNoImage), errors.Is(err, service.ErrInvalidEvent), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		zap.S().Errorf("请求处理失败: %v", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Warnf("写响应失败: %v", err)
	}
}
