package service

import (
	"context"
	"sync"

	"product-annotator/pkg/model"
	"product-annotator/pkg/ocr"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound = errors.New("会话不存在")
	ErrUnknownEvent    = errors.New("未注册的事件")
	ErrNoImage         = errors.New("尚未上传图片")
	ErrInvalidEvent    = errors.New("事件参数错误")
)

// Dataset 是会话控制器依赖的数据集能力
type Dataset interface {
	AddRow(ctx context.Context, imagePath, label string) error
	Flush(ctx context.Context) (string, error)
}

// SessionController 串联 OCR、候选过滤、标签拼接与数据集，
// 并把界面事件按名称分发给已注册的处理函数
type SessionController struct {
	recognizer ocr.Recognizer
	dataset    Dataset
	minLength  int

	mu       sync.RWMutex
	sessions map[string]*Session
	handlers map[string]EventHandler

	shutdownOnce sync.Once
	shutdownPath string
	shutdownErr  error
}

func NewSessionController(recognizer ocr.Recognizer, dataset Dataset, minLength int) *SessionController {
	c := &SessionController{
		recognizer: recognizer,
		dataset:    dataset,
		minLength:  minLength,
		sessions:   make(map[string]*Session),
		handlers:   make(map[string]EventHandler),
	}
	c.registerDefaultHandlers()
	return c
}

// Session 是单个用户的标注会话
type Session struct {
	id       string
	composer *LabelComposer

	mu          sync.Mutex
	imagePath   string
	suggestions []string
	generation  uint64
	cancel      context.CancelFunc
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) View() model.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	suggestions := make([]string, len(s.suggestions))
	copy(suggestions, s.suggestions)
	return model.SessionView{
		ID:          s.id,
		ImagePath:   s.imagePath,
		Suggestions: suggestions,
		Label:       s.composer.Label(),
	}
}

// CreateSession 创建一个新的会话
func (c *SessionController) CreateSession() *Session {
	s := &Session{
		id:       uuid.NewString(),
		composer: NewLabelComposer(),
	}
	c.mu.Lock()
	c.sessions[s.id] = s
	c.mu.Unlock()
	zap.S().Debugf("创建会话: %s", s.id)
	return s
}

func (c *SessionController) Session(id string) (*Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[id]
	if !ok {
		return nil, errors.Wrapf(ErrSessionNotFound, "id=%s", id)
	}
	return s, nil
}

// CloseSession 取消会话中进行中的识别并移除会话
func (c *SessionController) CloseSession(id string) {
	c.mu.Lock()
	s, ok := c.sessions[id]
	delete(c.sessions, id)
	c.mu.Unlock()
	if !ok {
		return
	}
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
}

// ProcessImage 识别图片并返回过滤后的候选。识别失败时记录日志并返回空列表；
// 如果期间同一会话提交了新的图片，本次结果被丢弃，会话状态以最后一次提交为准
func (c *SessionController) ProcessImage(ctx context.Context, s *Session, imagePath string) []string {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	if s.cancel != nil {
		s.cancel()
	}
	ocrCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.imagePath = imagePath
	s.suggestions = []string{}
	s.composer.Clear()
	s.mu.Unlock()
	defer cancel()

	type result struct {
		texts []string
		err   error
	}
	done := make(chan result, 1)
	go func() {
		texts, err := c.recognizer.Recognize(ocrCtx, imagePath)
		done <- result{texts: texts, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ocrCtx.Done():
		res = result{err: ocrCtx.Err()}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		zap.S().Debugf("会话 %s 的图片 %s 已被新的提交取代，丢弃识别结果", s.id, imagePath)
		return []string{}
	}
	if res.err != nil {
		zap.S().Errorf("处理图片失败: %s, %v", imagePath, res.err)
		return []string{}
	}
	s.suggestions = FilterSuggestions(res.texts, c.minLength)
	zap.S().Debugf("会话 %s 得到 %d 个候选", s.id, len(s.suggestions))

	out := make([]string, len(s.suggestions))
	copy(out, s.suggestions)
	return out
}

// SelectSuggestion 把选中的片段追加到标签
func (c *SessionController) SelectSuggestion(s *Session, selected ...string) string {
	return s.composer.Append(selected...)
}

// ClearLabel 清空已选片段
func (c *SessionController) ClearLabel(s *Session) {
	s.composer.Clear()
}

// SubmitLabel 把当前图片与标签写入数据集。label 为空指针时使用拼接出的标签。
// 写入失败时会立即尝试落盘一次，保护已有数据，然后返回写入错误
func (c *SessionController) SubmitLabel(ctx context.Context, s *Session, label *string) error {
	s.mu.Lock()
	imagePath := s.imagePath
	s.mu.Unlock()
	if imagePath == "" {
		return ErrNoImage
	}
	final := s.composer.Label()
	if label != nil {
		final = *label
	}

	if err := c.dataset.AddRow(ctx, imagePath, final); err != nil {
		zap.S().Errorf("添加标签到数据集失败: %s, %v", final, err)
		if path, ferr := c.dataset.Flush(ctx); ferr != nil {
			zap.S().Errorf("紧急保存数据集失败: %v", ferr)
		} else {
			zap.S().Infof("已紧急保存数据集: %s", path)
		}
		return errors.Wrap(err, "添加标签到数据集失败")
	}
	zap.S().Infof("标签已加入数据集: %s", final)
	return nil
}

// Flush 把数据集落盘
func (c *SessionController) Flush(ctx context.Context) (string, error) {
	return c.dataset.Flush(ctx)
}

// Shutdown 在进程退出时落盘一次；重复调用返回第一次的结果，不会重试
func (c *SessionController) Shutdown(ctx context.Context) (string, error) {
	c.shutdownOnce.Do(func() {
		zap.S().Info("退出前保存数据集")
		c.shutdownPath, c.shutdownErr = c.dataset.Flush(ctx)
		if c.shutdownErr != nil {
			zap.S().Errorf("退出前保存数据集失败: %v", c.shutdownErr)
		}
	})
	return c.shutdownPath, c.shutdownErr
}
