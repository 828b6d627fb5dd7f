package vision

import (
	"bytes"
	"context"
	stderrors "errors"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petvision-server-go/internal/domain/analysis"
	domainauth "petvision-server-go/internal/domain/auth"
	domainimage "petvision-server-go/internal/domain/image"
	"petvision-server-go/internal/domain/inference"
	"petvision-server-go/internal/domain/prompt"
	"petvision-server-go/internal/domain/session"
	"petvision-server-go/internal/platform/config"
	ptesting "petvision-server-go/internal/platform/testing"
	httptransport "petvision-server-go/internal/transport/http"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeClient struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
}

func (f *fakeClient) Generate(context.Context, *inference.Request) (*inference.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &inference.Response{Text: f.text}, nil
}

type harness struct {
	t      *testing.T
	engine *gin.Engine
	client *fakeClient
	cookie *http.Cookie
}

func newHarness(t *testing.T, client *fakeClient) *harness {
	t.Helper()
	return newHarnessWith(t, client, nil)
}

func newHarnessWith(t *testing.T, client *fakeClient, mutate func(*config.Config)) *harness {
	t.Helper()
	cfg := ptesting.SetupTestConfig(t)
	if mutate != nil {
		mutate(cfg)
	}
	logger := ptesting.SetupTestLogger(t).Legacy()

	store := session.NewMemory(session.Config{})
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	svc, err := analysis.NewService(analysis.Options{
		Store:     store,
		Assembler: prompt.NewAssembler("", inference.DefaultGenerationConfig(), inference.DefaultSafetyPolicy()),
		Client:    client,
		Logger:    logger,
	})
	require.NoError(t, err)

	pipeline, err := domainimage.NewPipeline(domainimage.Options{Security: &cfg.Security, Logger: logger})
	require.NoError(t, err)

	tokens := domainauth.NewSessionToken(cfg.Session.Secret).WithTTL(cfg.Session.TTL)
	router, err := httptransport.Build(httptransport.Options{
		Config:            cfg,
		Logger:            logger,
		SessionMiddleware: SessionMiddleware(tokens, cfg.Session.CookieName, logger),
	})
	require.NoError(t, err)

	vision, err := NewService(Options{
		Analysis:    svc,
		Pipeline:    pipeline,
		MaxPixels:   cfg.Security.MaxPixels,
		MaxFileSize: cfg.Security.MaxFileSize,
		Logger:      logger,
	})
	require.NoError(t, err)
	vision.Register(router.Session)

	return &harness{t: t, engine: router.Engine, client: client}
}

func (h *harness) do(req *http.Request) (*httptest.ResponseRecorder, httptransport.APIResponse) {
	h.t.Helper()
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.Name == DefaultCookieName {
			h.cookie = c
		}
	}

	var body httptransport.APIResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(h.t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func (h *harness) upload(flow, filename string, data []byte) (*httptest.ResponseRecorder, httptransport.APIResponse) {
	h.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(h.t, err)
	_, err = part.Write(data)
	require.NoError(h.t, err)
	require.NoError(h.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/flows/"+flow+"/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return h.do(req)
}

func (h *harness) submit(flow string) (*httptest.ResponseRecorder, httptransport.APIResponse) {
	return h.do(httptest.NewRequest(http.MethodPost, "/api/flows/"+flow+"/analysis", nil))
}

func dataMap(t *testing.T, resp httptransport.APIResponse) map[string]any {
	t.Helper()
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is %T", resp.Data)
	return m
}

func TestFlowsEndpointIssuesSessionCookie(t *testing.T) {
	h := newHarness(t, &fakeClient{})

	w, body := h.do(httptest.NewRequest(http.MethodGet, "/api/flows", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, body.Success)
	require.NotNil(t, h.cookie)
	assert.True(t, h.cookie.HttpOnly)

	flows, ok := body.Data.([]any)
	require.True(t, ok)
	require.Len(t, flows, 2)
	first := flows[0].(map[string]any)
	assert.Equal(t, "veterinary", first["id"])
	assert.Equal(t, "Generate Analysis", first["button_label"])
	assert.Equal(t, "dog-food", flows[1].(map[string]any)["id"])
}

func TestVeterinaryUploadAndAnalyse(t *testing.T) {
	const text = "Detailed Analysis: ... Consult with a Vet before making any decisions."
	h := newHarness(t, &fakeClient{text: text})

	w, body := h.upload("veterinary", "dog.jpg", ptesting.JPEGBytes(t, 32, 24))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	up := dataMap(t, body)
	assert.Equal(t, "image_selected", up["state"])
	assert.Equal(t, "jpeg", up["format"])

	w, body = h.submit("veterinary")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	pres := dataMap(t, body)
	assert.Equal(t, text, pres["body"])
	assert.Equal(t, prompt.ResultHeading, pres["heading"])
	assert.Equal(t, false, pres["empty"])

	w, body = h.do(httptest.NewRequest(http.MethodGet, "/api/flows/veterinary/state", nil))
	require.Equal(t, http.StatusOK, w.Code)
	state := dataMap(t, body)
	assert.Equal(t, "completed", state["state"])
	assert.Equal(t, true, state["has_image"])
	assert.Equal(t, text, state["result"].(map[string]any)["body"])
	assert.NotContains(t, w.Body.String(), `"bytes"`)
}

func TestDogFoodEmptyResponse(t *testing.T) {
	h := newHarness(t, &fakeClient{text: ""})

	w, _ := h.upload("dog-food", "kibble.png", ptesting.PNGBytes(t, 8, 8))
	require.Equal(t, http.StatusOK, w.Code)

	w, body := h.submit("dog-food")
	require.Equal(t, http.StatusOK, w.Code)
	pres := dataMap(t, body)
	assert.Equal(t, true, pres["empty"])
	assert.NotContains(t, pres, "heading")
	assert.NotContains(t, pres, "body")
}

func TestAnalysisWithoutImageIsConflict(t *testing.T) {
	client := &fakeClient{text: "never"}
	h := newHarness(t, client)

	w, body := h.submit("veterinary")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, body.Success)
	assert.Equal(t, "no image selected", body.Message)
	assert.Equal(t, 0, client.calls)
}

func TestAnalysisRemoteFaultIsBadGateway(t *testing.T) {
	h := newHarness(t, &fakeClient{err: stderrors.New("401 Unauthorized")})

	w, _ := h.upload("veterinary", "dog.jpeg", ptesting.JPEGBytes(t, 4, 4))
	require.Equal(t, http.StatusOK, w.Code)

	w, body := h.submit("veterinary")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "analysis failed: 401 Unauthorized", body.Message)

	_, body = h.do(httptest.NewRequest(http.MethodGet, "/api/flows/veterinary/state", nil))
	state := dataMap(t, body)
	assert.Equal(t, "faulted", state["state"])
	assert.Equal(t, "analysis failed: 401 Unauthorized", state["error_message"])
}

func TestUploadRejectsUnsupportedFormat(t *testing.T) {
	h := newHarness(t, &fakeClient{})

	w, body := h.upload("veterinary", "cat.gif", []byte("GIF89a"))
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Contains(t, body.Message, "unsupported format")

	req := httptest.NewRequest(http.MethodPost, "/api/flows/veterinary/image", strings.NewReader("x"))
	req.Header.Set("Content-Type", "text/plain")
	w, _ = h.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreview(t *testing.T) {
	h := newHarness(t, &fakeClient{})

	w, _ := h.do(httptest.NewRequest(http.MethodGet, "/api/flows/dog-food/image/preview", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = h.upload("dog-food", "big.png", ptesting.PNGBytes(t, 400, 100))
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = h.do(httptest.NewRequest(http.MethodGet, "/api/flows/dog-food/image/preview", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte{0x89, 'P', 'N', 'G'}))
}

func TestPreviewRejectsOversizedImage(t *testing.T) {
	client := &fakeClient{text: "ok"}
	h := newHarness(t, client)

	// 上传只校验格式与字节数，巨大的图片头可以正常选中
	w, _ := h.upload("veterinary", "huge.png", ptesting.PNGHeaderBytes(20000, 20000))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, body := h.do(httptest.NewRequest(http.MethodGet, "/api/flows/veterinary/image/preview", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "image is too large to preview", body.Message)

	// 预览失败不影响分析
	w, _ = h.submit("veterinary")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, client.calls)
}

func TestUploadBodyTooLarge(t *testing.T) {
	h := newHarnessWith(t, &fakeClient{}, func(cfg *config.Config) {
		cfg.Security.MaxFileSize = 1024
	})

	// 超过 max_file_size 加 multipart 余量
	w, body := h.upload("veterinary", "big.png", bytes.Repeat([]byte{0x89}, 3<<20/2))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
	assert.False(t, body.Success)
	assert.Equal(t, "image exceeds maximum size of 1024 bytes", body.Message)

	// 在 multipart 余量内的超限文件仍由 pipeline 按 400 拒绝
	w, body = h.upload("veterinary", "mid.png", bytes.Repeat([]byte{0x89}, 2048))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "image exceeds maximum size of 1024 bytes", body.Message)
}

func TestSessionsAreIsolatedByCookie(t *testing.T) {
	h := newHarness(t, &fakeClient{text: "x"})

	w, _ := h.upload("veterinary", "dog.jpg", ptesting.JPEGBytes(t, 4, 4))
	require.Equal(t, http.StatusOK, w.Code)

	// 另一个浏览器没有 cookie
	other := &harness{t: t, engine: h.engine, client: h.client}
	w, body := other.submit("veterinary")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "no image selected", body.Message)
	require.NotNil(t, other.cookie)
	assert.NotEqual(t, h.cookie.Value, other.cookie.Value)

	// 伪造的 cookie 得到新会话
	forged := &harness{t: t, engine: h.engine, client: h.client, cookie: &http.Cookie{Name: DefaultCookieName, Value: "forged"}}
	w, _ = forged.submit("veterinary")
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = h.submit("veterinary")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUnknownFlowIsNotFound(t *testing.T) {
	h := newHarness(t, &fakeClient{})
	w, body := h.submit("cat-food")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, body.Success)
}
