package main

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/brunobiangulo/studyplan"
	"github.com/brunobiangulo/studyplan/graph"
)

var sampleLines = []string{
	"Bachelor of Science Program in Computer Science",
	"Code 25500091105741",
	"Total Credits 132",
	"Year 1, Semester 1",
	"Course Code Course Title Credits",
	"CSX 3001 Fundamentals of Computer Programming 3 (2-2-5)",
	"GE 1401 English I 3 (3-0-6)",
	"or GE 1402 Thai Language 3 (3-0-6)",
	"Total 9",
	"Year 1, Semester 2",
	"Course Code Course Title Credits",
	"ITX 2007 Data Communications 3 (3-0-6)",
	"CSX 3003 Data Structures and Algorithms 3 (2-2-5)",
	"CSX 3009 Algorithm Design 3 (3-0-6)",
	"Total 9",
	"Year 3, Semester 1",
	"Course Code Course Title Credits",
	"Two Major Elective Courses 6",
	"Total 6",
	"Course Descriptions",
	"CSX 3003 Data Structures and Algorithms 3 (2-2-5)",
	"Prerequisite: CSX 3001 Fundamentals of Computer Programming",
	"CSX 3009 Algorithm Design 3 (3-0-6)",
	"Prerequisites: CSX 3001 and ITX 2007",
}

// sampleDocx renders sampleLines as a minimal DOCX, one paragraph per line.
func sampleDocx(t *testing.T) []byte {
	t.Helper()
	var doc strings.Builder
	doc.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	doc.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, line := range sampleLines {
		doc.WriteString("<w:p><w:r><w:t>")
		xml.EscapeText(&doc, []byte(line))
		doc.WriteString("</w:t></w:r></w:p>")
	}
	doc.WriteString("</w:body></w:document>")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(doc.String())); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestServer(t *testing.T, cfg studyplan.Config) *httptest.Server {
	t.Helper()
	e, err := studyplan.New(cfg)
	if err != nil {
		t.Fatalf("studyplan.New: %v", err)
	}
	t.Cleanup(func() { e.Close() })

	srv := httptest.NewServer(logMiddleware(newHandler(e, cfg.MaxUploadBytes()).routes()))
	t.Cleanup(srv.Close)
	return srv
}

func memoryConfig() studyplan.Config {
	cfg := studyplan.DefaultConfig()
	cfg.StoreBackend = "memory"
	return cfg
}

func upload(t *testing.T, url, filename string, content []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(content)
	mw.Close()

	resp, err := http.Post(url, mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func TestParseFastFlow(t *testing.T) {
	srv := newTestServer(t, memoryConfig())

	resp := upload(t, srv.URL+"/parse-fast", "plan.docx", sampleDocx(t))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	var res studyplan.Result
	decode(t, resp, &res)
	if res.SessionID == "" || res.Method != "regex" || res.Filename != "plan.docx" {
		t.Fatalf("result header = %q %q %q", res.SessionID, res.Method, res.Filename)
	}
	if len(res.Courses) != 8 {
		t.Fatalf("got %d courses, want 8", len(res.Courses))
	}
	id := res.SessionID

	resp = get(t, srv.URL+"/csv/"+id)
	csv := new(bytes.Buffer)
	csv.ReadFrom(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "text/csv" {
		t.Errorf("csv status = %d, type = %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if got := resp.Header.Get("Content-Disposition"); got != "attachment; filename=study-plan.csv" {
		t.Errorf("Content-Disposition = %q", got)
	}
	if !strings.Contains(csv.String(), "CSX3003") {
		t.Errorf("csv body:\n%s", csv)
	}

	var g graph.StudyPlanGraph
	resp = get(t, srv.URL+"/graph/"+id)
	decode(t, resp, &g)
	if len(g.Nodes) != 8 {
		t.Errorf("graph nodes = %d, want 8", len(g.Nodes))
	}

	var chain struct {
		Direction string                  `json:"direction"`
		Chain     []graph.TraversalResult `json:"chain"`
	}
	resp = get(t, srv.URL+"/graph/"+id+"/chain/CSX3009?direction=up")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chain status = %d", resp.StatusCode)
	}
	decode(t, resp, &chain)
	if chain.Direction != string(graph.Upstream) || len(chain.Chain) != 2 {
		t.Errorf("chain = %+v", chain)
	}

	var info map[string]interface{}
	resp = get(t, srv.URL+"/program-info/"+id)
	decode(t, resp, &info)
	if info["program_code"] != "25500091105741" {
		t.Errorf("program info = %v", info)
	}

	resp = get(t, srv.URL+"/xlsx/"+id)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(resp.Header.Get("Content-Type"), "spreadsheetml") {
		t.Errorf("xlsx status = %d, type = %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	resp = get(t, srv.URL+"/sessions/"+id)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("session status = %d", resp.StatusCode)
	}

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/cleanup/"+id, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("cleanup #%d status = %d", i+1, resp.StatusCode)
		}
	}

	resp = get(t, srv.URL+"/graph/"+id)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("graph after cleanup status = %d, want 404", resp.StatusCode)
	}
}

func TestParseRejectsUploads(t *testing.T) {
	srv := newTestServer(t, memoryConfig())

	tests := []struct {
		name     string
		path     string
		filename string
		content  []byte
		want     int
	}{
		{"unsupported extension", "/parse-fast", "plan.txt", []byte("text"), http.StatusBadRequest},
		{"not a zip", "/parse-fast", "plan.docx", []byte("not a docx"), http.StatusInternalServerError},
		{"llm not configured", "/parse", "plan.docx", []byte("x"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := upload(t, srv.URL+tt.path, tt.filename, tt.content)
			var body map[string]string
			decode(t, resp, &body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d (%s)", resp.StatusCode, tt.want, body["error"])
			}
			if body["error"] == "" {
				t.Error("missing error message")
			}
		})
	}
}

func TestParseMissingFile(t *testing.T) {
	srv := newTestServer(t, memoryConfig())
	resp, err := http.Post(srv.URL+"/parse-fast", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestParseLLMEndpoint(t *testing.T) {
	answer := `{"program_info":{"program_code":"CS1","program_title":"CS","total_credits":130},` +
		`"courses":[{"year":1,"semester":1,"course_code":"CSX3001","course_title":"Programming","credits":3,"prerequisite":"","or_flag":""}]}`
	llmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"model":"m","choices":[{"message":{"content":%q},"finish_reason":"stop"}]}`, answer)
	}))
	defer llmSrv.Close()

	cfg := memoryConfig()
	cfg.Chat = studyplan.LLMConfig{Provider: "custom", Model: "m", BaseURL: llmSrv.URL}
	srv := newTestServer(t, cfg)

	resp := upload(t, srv.URL+"/parse", "plan.docx", sampleDocx(t))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var res studyplan.Result
	decode(t, resp, &res)
	if res.Method != "llm" || len(res.Courses) != 1 || res.ProgramInfo.ProgramCode != "CS1" {
		t.Errorf("result = %+v", res)
	}
}

func TestLookupErrors(t *testing.T) {
	srv := newTestServer(t, memoryConfig())

	for _, path := range []string{"/csv/nope", "/xlsx/nope", "/graph/nope", "/program-info/nope", "/sessions/nope"} {
		resp := get(t, srv.URL+path)
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, resp.StatusCode)
		}
	}

	resp := get(t, srv.URL+"/graph/nope/chain/CSX3001?direction=sideways")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad direction status = %d, want 400", resp.StatusCode)
	}
}

func TestChainUnknownCourse(t *testing.T) {
	srv := newTestServer(t, memoryConfig())

	resp := upload(t, srv.URL+"/parse-fast", "plan.docx", sampleDocx(t))
	var res studyplan.Result
	decode(t, resp, &res)

	resp = get(t, srv.URL+"/graph/"+res.SessionID+"/chain/ZZZ9999")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	resp = get(t, srv.URL+"/graph/"+res.SessionID+"/chain/CSX3001?depth=-1")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("negative depth status = %d, want 400", resp.StatusCode)
	}
}

func TestUploadTooLarge(t *testing.T) {
	e, err := studyplan.New(memoryConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	h := newHandler(e, 1<<20).routes()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "plan.docx")
	fw.Write(bytes.Repeat([]byte("x"), 2<<20))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/parse-fast", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge && rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 413 or 400", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, memoryConfig())
	var body struct {
		Status  string   `json:"status"`
		LLM     bool     `json:"llm"`
		Formats []string `json:"formats"`
	}
	decode(t, get(t, srv.URL+"/health"), &body)
	if body.Status != "ok" || body.LLM || len(body.Formats) == 0 {
		t.Errorf("health = %+v", body)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{studyplan.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", graph.ErrUnknownNode), http.StatusNotFound},
		{fmt.Errorf("%w: doc", studyplan.ErrUnsupportedFormat), http.StatusBadRequest},
		{studyplan.ErrEmptyDocument, http.StatusBadRequest},
		{studyplan.ErrLLMUnavailable, http.StatusServiceUnavailable},
		{studyplan.ErrLLMRequestFailed, http.StatusBadGateway},
		{studyplan.ErrParsingFailed, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestAuthMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := authMiddleware("secret", ok)

	tests := []struct {
		method, path, auth string
		want               int
	}{
		{http.MethodGet, "/graph/x", "", http.StatusUnauthorized},
		{http.MethodGet, "/graph/x", "Bearer wrong", http.StatusUnauthorized},
		{http.MethodGet, "/graph/x", "Bearer secret", http.StatusOK},
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodOptions, "/parse", "", http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		if tt.auth != "" {
			req.Header.Set("Authorization", tt.auth)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("%s %s (%q) = %d, want %d", tt.method, tt.path, tt.auth, rec.Code, tt.want)
		}
	}
}

func TestCORSMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := corsMiddleware("http://a.example, http://b.example", ok)

	req := httptest.NewRequest(http.MethodOptions, "/parse", nil)
	req.Header.Set("Origin", "http://b.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://b.example" {
		t.Errorf("allowed origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unlisted origin echoed: %q", got)
	}
}
