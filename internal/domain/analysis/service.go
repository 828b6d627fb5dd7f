package analysis

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"petvision-server-go/internal/core/providers/vlllm"
	"petvision-server-go/internal/domain/eventbus"
	"petvision-server-go/internal/domain/image"
	"petvision-server-go/internal/domain/inference"
	"petvision-server-go/internal/domain/prompt"
	"petvision-server-go/internal/domain/session"
	"petvision-server-go/internal/platform/errors"
	"petvision-server-go/internal/utils"
)

// ErrNoImage 提交时没有图片。不会构造请求，也不会调用模型。
var ErrNoImage = errors.New(errors.KindPrecondition, "analysis.Submit", "no image selected")

// Service 收集 -> 组装 -> 调用 -> 展示，两个流程共用
type Service struct {
	store     session.Store
	assembler *prompt.Assembler
	client    vlllm.Client
	bus       eventbus.Publisher
	logger    *utils.Logger
	locks     keyedMutex
}

// Options configures the analysis service.
type Options struct {
	Store     session.Store
	Assembler *prompt.Assembler
	Client    vlllm.Client
	Bus       eventbus.Publisher
	Logger    *utils.Logger
}

func NewService(opts Options) (*Service, error) {
	const op = "analysis.NewService"
	if opts.Store == nil {
		return nil, errors.New(errors.KindBootstrap, op, "session store is required")
	}
	if opts.Assembler == nil {
		return nil, errors.New(errors.KindBootstrap, op, "prompt assembler is required")
	}
	if opts.Client == nil {
		return nil, errors.New(errors.KindBootstrap, op, "inference client is required")
	}
	if opts.Logger == nil {
		opts.Logger = utils.DefaultLogger
	}
	return &Service{
		store:     opts.Store,
		assembler: opts.Assembler,
		client:    opts.Client,
		bus:       opts.Bus,
		logger:    opts.Logger,
		locks:     keyedMutex{locks: make(map[string]*refLock)},
	}, nil
}

// Upload 任意状态下上传新图片都会回到 image_selected，并清除上一次结果
func (s *Service) Upload(ctx context.Context, sessionID string, flow prompt.Flow, up *image.Upload) (session.Record, error) {
	const op = "analysis.Upload"
	if up == nil || len(up.Bytes) == 0 {
		return session.Record{}, errors.New(errors.KindValidation, op, "empty image payload")
	}

	unlock := s.locks.Lock(session.Key(sessionID, flow.String()))
	defer unlock()

	prev, err := s.load(ctx, sessionID, flow)
	if err != nil {
		return session.Record{}, err
	}

	rec := session.Record{
		SessionID: sessionID,
		Flow:      flow.String(),
		State:     session.StateImageSelected,
		Upload:    up,
		CreatedAt: prev.CreatedAt,
	}
	if err := s.store.Put(ctx, rec); err != nil {
		return session.Record{}, errors.Wrap(errors.KindStorage, op, "保存会话失败", err)
	}
	s.transition(sessionID, flow, prev.State, rec.State, up.Filename)
	return s.load(ctx, sessionID, flow)
}

// Submit 同步调用模型。远端错误进入 faulted 状态并以 inference 错误返回，不重试。
func (s *Service) Submit(ctx context.Context, sessionID string, flow prompt.Flow) (Presentation, error) {
	const op = "analysis.Submit"

	unlock := s.locks.Lock(session.Key(sessionID, flow.String()))
	defer unlock()

	rec, err := s.load(ctx, sessionID, flow)
	if err != nil {
		return Presentation{}, err
	}
	if !rec.HasImage() {
		s.logger.WarnTag("视觉", "提交被拒绝: 未选择图片 flow=%s", flow)
		return Presentation{}, ErrNoImage
	}

	req, err := s.assembler.Assemble(rec.Upload, flow)
	if err != nil {
		return Presentation{}, err
	}

	from := rec.State
	rec.State = session.StateSubmitted
	rec.ResultText, rec.ResultEmpty, rec.ErrorMessage = "", false, ""
	if err := s.store.Put(ctx, rec); err != nil {
		return Presentation{}, errors.Wrap(errors.KindStorage, op, "保存会话失败", err)
	}
	s.transition(sessionID, flow, from, session.StateSubmitted, "")

	resp, callErr := s.client.Generate(ctx, req)

	// 调用方断开后仍然记录结果
	persistCtx := context.WithoutCancel(ctx)
	if callErr != nil {
		callErr = errors.Wrap(errors.KindInference, op, "模型服务调用失败", callErr)
		rec.State = session.StateFaulted
		rec.ErrorMessage = FaultMessage(callErr)
		if err := s.store.Put(persistCtx, rec); err != nil {
			s.logger.ErrorTag("会话", "保存失败状态出错 flow=%s: %v", flow, err)
		}
		s.transition(sessionID, flow, session.StateSubmitted, session.StateFaulted, rec.ErrorMessage)
		return Presentation{}, callErr
	}

	if resp == nil {
		resp = &inference.Response{}
	}
	pres := Present(flow, resp)
	rec.State = session.StateCompleted
	rec.ResultText = resp.Text
	rec.ResultEmpty = pres.Empty
	if err := s.store.Put(persistCtx, rec); err != nil {
		s.logger.ErrorTag("会话", "保存分析结果出错 flow=%s: %v", flow, err)
	}

	detail := ""
	switch {
	case resp.Blocked:
		detail = "blocked: " + resp.FinishReason
	case pres.Empty:
		detail = "empty"
	}
	s.transition(sessionID, flow, session.StateSubmitted, session.StateCompleted, detail)
	s.logger.DebugTag("视觉", "模型输出 flow=%s text=%s", flow, resp.Text)
	return pres, nil
}

// State 返回当前记录，没有记录时为 idle
func (s *Service) State(ctx context.Context, sessionID string, flow prompt.Flow) (session.Record, error) {
	return s.load(ctx, sessionID, flow)
}

// Image 返回当前持有的图片，用于预览
func (s *Service) Image(ctx context.Context, sessionID string, flow prompt.Flow) (*image.Upload, error) {
	rec, err := s.load(ctx, sessionID, flow)
	if err != nil {
		return nil, err
	}
	if !rec.HasImage() {
		return nil, errors.New(errors.KindPrecondition, "analysis.Image", "no image selected")
	}
	return rec.Upload, nil
}

func (s *Service) load(ctx context.Context, sessionID string, flow prompt.Flow) (session.Record, error) {
	rec, err := s.store.Get(ctx, sessionID, flow.String())
	if stderrors.Is(err, session.ErrNotFound) {
		return session.Record{SessionID: sessionID, Flow: flow.String(), State: session.StateIdle}, nil
	}
	if err != nil {
		return session.Record{}, errors.Wrap(errors.KindStorage, "analysis.load", "读取会话失败", err)
	}
	return rec, nil
}

func (s *Service) transition(sessionID string, flow prompt.Flow, from, to session.State, detail string) {
	eventbus.PublishTransition(s.bus, eventbus.TransitionEvent{
		SessionID: sessionID,
		Flow:      flow.String(),
		From:      string(from),
		To:        string(to),
		Detail:    detail,
		At:        time.Now(),
	})
}

// FaultMessage 面向用户的错误描述，取最内层原因
func FaultMessage(err error) string {
	if err == nil {
		return ""
	}
	root := err
	for {
		next := stderrors.Unwrap(root)
		if next == nil {
			break
		}
		root = next
	}
	var typed *errors.Error
	if stderrors.As(root, &typed) {
		return "analysis failed: " + typed.Message
	}
	return "analysis failed: " + root.Error()
}

type refLock struct {
	sync.Mutex
	refs int
}

// keyedMutex 同一 sessionID:flow 的操作串行执行
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
