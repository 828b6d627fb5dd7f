package vision

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"petvision-server-go/internal/domain/analysis"
	domainimage "petvision-server-go/internal/domain/image"
	"petvision-server-go/internal/domain/prompt"
	"petvision-server-go/internal/platform/errors"
	httptransport "petvision-server-go/internal/transport/http"
	"petvision-server-go/internal/utils"
)

// Service 两个分析流程的 HTTP 接口
type Service struct {
	analysis     *analysis.Service
	pipeline     *domainimage.Pipeline
	previewWidth int
	maxPixels    int64
	maxFileSize  int64
	logger       *utils.Logger
}

// Options configures the vision HTTP service.
type Options struct {
	Analysis     *analysis.Service
	Pipeline     *domainimage.Pipeline
	PreviewWidth int
	MaxPixels    int64
	MaxFileSize  int64
	Logger       *utils.Logger
}

// NewService 创建新的Vision服务实例
func NewService(opts Options) (*Service, error) {
	if opts.Analysis == nil {
		return nil, errors.New(errors.KindTransport, "vision.new", "analysis service is required")
	}
	if opts.Pipeline == nil {
		return nil, errors.New(errors.KindTransport, "vision.new", "image pipeline is required")
	}
	if opts.Logger == nil {
		opts.Logger = utils.DefaultLogger
	}
	if opts.PreviewWidth <= 0 {
		opts.PreviewWidth = domainimage.DefaultPreviewWidth
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = domainimage.DefaultMaxPixels
	}

	return &Service{
		analysis:     opts.Analysis,
		pipeline:     opts.Pipeline,
		previewWidth: opts.PreviewWidth,
		maxPixels:    opts.MaxPixels,
		maxFileSize:  opts.MaxFileSize,
		logger:       opts.Logger,
	}, nil
}

// Register 注册Vision相关的HTTP路由，router 需已挂载会话中间件
func (s *Service) Register(router *gin.RouterGroup) {
	router.GET("/flows", s.handleFlows)

	flows := router.Group("/flows/:flow")
	flows.Use(s.requireFlow)
	flows.POST("/image", s.handleUpload)
	flows.GET("/image/preview", s.handlePreview)
	flows.POST("/analysis", s.handleAnalysis)
	flows.GET("/state", s.handleState)

	s.logger.InfoTag("HTTP", "Vision服务路由注册完成")
}

const ctxFlow = "petvision.flow"

// requireFlow 解析路径中的流程并确认会话存在
func (s *Service) requireFlow(c *gin.Context) {
	flow, err := prompt.ParseFlow(c.Param("flow"))
	if err != nil {
		httptransport.RespondError(c, http.StatusNotFound, errors.Message(err), nil)
		c.Abort()
		return
	}
	if SessionID(c) == "" {
		httptransport.RespondError(c, http.StatusInternalServerError, "session is not established", nil)
		c.Abort()
		return
	}
	c.Set(ctxFlow, flow)
	c.Next()
}

func flowOf(c *gin.Context) prompt.Flow {
	flow, _ := c.Get(ctxFlow)
	f, _ := flow.(prompt.Flow)
	return f
}

// handleFlows 列出全部流程
// @Summary 分析流程列表
// @Description 返回兽医分析与犬粮推荐两个流程的页面文案
// @Tags Vision
// @Produce json
// @Success 200 {array} FlowView
// @Router /flows [get]
func (s *Service) handleFlows(c *gin.Context) {
	views := make([]FlowView, 0, len(prompt.Flows()))
	for _, f := range prompt.Flows() {
		views = append(views, newFlowView(f.Descriptor()))
	}
	httptransport.RespondSuccess(c, http.StatusOK, views, "")
}

// handleUpload 上传图片
// @Summary 上传待分析图片
// @Description 仅接受 png/jpg/jpeg，新图片会替换当前流程已有的图片并清空上次结果
// @Tags Vision
// @Accept multipart/form-data
// @Produce json
// @Param flow path string true "流程 ID (veterinary | dog-food)"
// @Param file formData file true "图片文件"
// @Success 200 {object} UploadResult
// @Failure 400 {object} object
// @Failure 413 {object} object
// @Failure 415 {object} object
// @Router /flows/{flow}/image [post]
func (s *Service) handleUpload(c *gin.Context) {
	flow := flowOf(c)
	sessionID := SessionID(c)

	if s.maxFileSize > 0 {
		// multipart 头部留出余量，实际大小由 pipeline 校验
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxFileSize+1<<20)
	}

	header, err := c.FormFile("file")
	if err != nil {
		s.logger.WarnTag("视觉", "上传解析失败 flow=%s: %v", flow, err)
		if isBodyTooLarge(err) {
			httptransport.RespondError(c, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("image exceeds maximum size of %d bytes", s.maxFileSize), nil)
			return
		}
		httptransport.RespondErr(c,
			errors.Wrap(errors.KindValidation, "vision.upload", "file field is required", err), "")
		return
	}
	file, err := header.Open()
	if err != nil {
		httptransport.RespondErr(c,
			errors.Wrap(errors.KindValidation, "vision.upload", "failed to read uploaded file", err), "")
		return
	}
	defer file.Close()

	upload, err := s.pipeline.Process(c.Request.Context(), domainimage.Input{
		Reader:   file,
		Filename: header.Filename,
		Source:   "upload",
	})
	if err != nil {
		httptransport.RespondErr(c, err, "")
		return
	}

	rec, err := s.analysis.Upload(c.Request.Context(), sessionID, flow, upload)
	if err != nil {
		s.logger.ErrorTag("视觉", "保存上传失败 flow=%s: %v", flow, err)
		httptransport.RespondErr(c, err, "")
		return
	}

	httptransport.RespondSuccess(c, http.StatusOK, UploadResult{
		Flow:     flow.String(),
		State:    rec.State,
		Format:   upload.Format,
		Size:     upload.Size(),
		Filename: upload.Filename,
	}, "image selected")
}

// isBodyTooLarge 请求体被 MaxBytesReader 截断。
// multipart 解析有时只保留错误文本，所以同时匹配字符串
func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if stderrors.As(err, &mbe) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

// handlePreview 返回缩略图
// @Summary 图片预览
// @Description 以 PNG 返回当前图片的缩略图，宽度不超过 security.preview_width
// @Tags Vision
// @Produce png
// @Param flow path string true "流程 ID"
// @Success 200 {file} binary
// @Failure 404 {object} object
// @Failure 422 {object} object
// @Router /flows/{flow}/image/preview [get]
func (s *Service) handlePreview(c *gin.Context) {
	flow := flowOf(c)

	upload, err := s.analysis.Image(c.Request.Context(), SessionID(c), flow)
	if err != nil {
		if errors.IsKind(err, errors.KindPrecondition) {
			httptransport.RespondError(c, http.StatusNotFound, "no image selected", nil)
			return
		}
		httptransport.RespondErr(c, err, "")
		return
	}

	thumb, err := domainimage.Preview(upload, s.previewWidth, s.maxPixels)
	if err != nil {
		s.logger.WarnTag("视觉", "生成预览失败 flow=%s file=%s: %v", flow, upload.Filename, err)
		if errors.IsKind(err, errors.KindValidation) {
			httptransport.RespondError(c, http.StatusUnprocessableEntity, "image is too large to preview", nil)
			return
		}
		httptransport.RespondError(c, http.StatusUnprocessableEntity, "image could not be decoded for preview", nil)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", thumb)
}

// handleAnalysis 提交分析
// @Summary 生成分析
// @Description 将当前图片与流程指令发送给视觉模型，同步返回结果文本
// @Tags Vision
// @Produce json
// @Param flow path string true "流程 ID"
// @Success 200 {object} analysis.Presentation
// @Failure 409 {object} object
// @Failure 502 {object} object
// @Router /flows/{flow}/analysis [post]
func (s *Service) handleAnalysis(c *gin.Context) {
	flow := flowOf(c)

	pres, err := s.analysis.Submit(c.Request.Context(), SessionID(c), flow)
	switch {
	case err == nil:
		httptransport.RespondSuccess(c, http.StatusOK, pres, "")
	case stderrors.Is(err, analysis.ErrNoImage):
		httptransport.RespondErr(c, err, "no image selected")
	case errors.IsKind(err, errors.KindInference):
		httptransport.RespondErr(c, err, analysis.FaultMessage(err))
	default:
		s.logger.ErrorTag("视觉", "分析失败 flow=%s: %v", flow, err)
		httptransport.RespondErr(c, err, "")
	}
}

// handleState 查询当前状态
// @Summary 流程状态
// @Description 返回当前会话在该流程下的状态与最近一次结果，不含图片字节
// @Tags Vision
// @Produce json
// @Param flow path string true "流程 ID"
// @Success 200 {object} StateView
// @Router /flows/{flow}/state [get]
func (s *Service) handleState(c *gin.Context) {
	flow := flowOf(c)

	rec, err := s.analysis.State(c.Request.Context(), SessionID(c), flow)
	if err != nil {
		httptransport.RespondErr(c, err, "")
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, newStateView(flow, rec), "")
}
