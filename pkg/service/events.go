package service

import (
	"context"

	"product-annotator/pkg/model"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// 界面事件名称
const (
	EventProcessImage     = "process_image"
	EventSelectSuggestion = "select_suggestion"
	EventClear            = "clear"
	EventSubmitLabel      = "submit_label"
	EventFlush            = "flush"
)

// Event 携带一次界面事件的参数。Values 来自表单或 JSON，类型不固定
type Event struct {
	ImagePath string
	Values    map[string]interface{}
}

// EventHandler 处理一个界面事件
type EventHandler func(ctx context.Context, c *SessionController, s *Session, ev Event) error

// Register 注册事件处理函数，同名事件会被覆盖
func (c *SessionController) Register(event string, handler EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = handler
}

// Events 返回已注册的事件名
func (c *SessionController) Events() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.handlers))
	for name := range c.handlers {
		names = append(names, name)
	}
	return names
}

// Dispatch 把事件交给对应的处理函数，返回处理后的会话状态
func (c *SessionController) Dispatch(ctx context.Context, sessionID, event string, ev Event) (model.SessionView, error) {
	s, err := c.Session(sessionID)
	if err != nil {
		return model.SessionView{}, err
	}
	c.mu.RLock()
	handler, ok := c.handlers[event]
	c.mu.RUnlock()
	if !ok {
		return s.View(), errors.Wrapf(ErrUnknownEvent, "event=%s", event)
	}
	if err := handler(ctx, c, s, ev); err != nil {
		return s.View(), err
	}
	return s.View(), nil
}

func (c *SessionController) registerDefaultHandlers() {
	c.Register(EventProcessImage, handleProcessImage)
	c.Register(EventSelectSuggestion, handleSelectSuggestion)
	c.Register(EventClear, handleClear)
	c.Register(EventSubmitLabel, handleSubmitLabel)
	c.Register(EventFlush, handleFlush)
}

func handleProcessImage(ctx context.Context, c *SessionController, s *Session, ev Event) error {
	imagePath := ev.ImagePath
	if imagePath == "" {
		imagePath = cast.ToString(ev.Values["image_path"])
	}
	if imagePath == "" {
		return ErrNoImage
	}
	c.ProcessImage(ctx, s, imagePath)
	return nil
}

// handleSelectSuggestion 接受 suggestion (单个) 或 suggestions (列表)，空值被忽略
func handleSelectSuggestion(_ context.Context, c *SessionController, s *Session, ev Event) error {
	var candidates []string
	if v, ok := ev.Values["suggestion"]; ok {
		candidates = append(candidates, cast.ToString(v))
	}
	if v, ok := ev.Values["suggestions"]; ok {
		candidates = append(candidates, cast.ToStringSlice(v)...)
	}
	selected := make([]string, 0, len(candidates))
	for _, fragment := range candidates {
		if fragment != "" {
			selected = append(selected, fragment)
		}
	}
	if len(selected) == 0 {
		return errors.Wrap(ErrInvalidEvent, "缺少 suggestion 参数")
	}
	c.SelectSuggestion(s, selected...)
	return nil
}

func handleClear(_ context.Context, c *SessionController, s *Session, _ Event) error {
	c.ClearLabel(s)
	return nil
}

// handleSubmitLabel 允许界面通过 label 参数提交手工修改后的标签
func handleSubmitLabel(ctx context.Context, c *SessionController, s *Session, ev Event) error {
	var label *string
	if v, ok := ev.Values["label"]; ok {
		l := cast.ToString(v)
		label = &l
	}
	return c.SubmitLabel(ctx, s, label)
}

func handleFlush(ctx context.Context, c *SessionController, _ *Session, _ Event) error {
	path, err := c.Flush(ctx)
	if err != nil {
		return errors.Wrap(err, "保存数据集失败")
	}
	zap.S().Infof("数据集已保存: %s", path)
	return nil
}
