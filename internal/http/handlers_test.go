package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/contact-form-service/internal/session"
	"github.com/kjstillabower/contact-form-service/internal/testhelpers"
	"github.com/kjstillabower/contact-form-service/internal/view"
)

const (
	firstNameErr = "Error: firstName must have at least 5 characters."
	lastNameErr  = "Error: lastName is a required field."
	emailErr     = "Error: email must be a valid email address."
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	renderer, err := view.New()
	if err != nil {
		t.Fatalf("view.New() error = %v", err)
	}
	sessions := session.NewManager(session.NewInMemoryStore(), time.Minute)
	return NewHandler(sessions, renderer, nil, CookieConfig{MaxAge: time.Minute}, zap.NewNop())
}

// browser replays a user's events against the router, keeping the session cookie.
type browser struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
	last    *httptest.ResponseRecorder
}

func newBrowser(t *testing.T, handler http.Handler) *browser {
	return &browser{t: t, handler: handler, cookies: make(map[string]*http.Cookie)}
}

func (b *browser) do(method, path string, form url.Values, header map[string]string) *httptest.ResponseRecorder {
	b.t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	b.handler.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	b.last = w
	return w
}

func (b *browser) open() *testhelpers.Document {
	b.t.Helper()
	w := b.do("GET", "/", nil, nil)
	if w.Code != http.StatusOK {
		b.t.Fatalf("GET / status = %d, want 200", w.Code)
	}
	return testhelpers.ParseDocument(b.t, w.Body.String())
}

// typeInto sends one field-change event per character, like keystrokes.
func (b *browser) typeInto(field, text string) *testhelpers.Document {
	b.t.Helper()
	typed := ""
	for _, r := range text {
		typed += string(r)
		w := b.do("POST", "/fields/"+field, url.Values{field: {typed}}, nil)
		if w.Code != http.StatusOK {
			b.t.Fatalf("POST /fields/%s status = %d, body = %s", field, w.Code, w.Body.String())
		}
	}
	return testhelpers.ParseDocument(b.t, b.last.Body.String())
}

func (b *browser) clickSubmit() *testhelpers.Document {
	b.t.Helper()
	b.do("POST", "/submit", url.Values{}, nil)
	return testhelpers.ParseDocument(b.t, b.last.Body.String())
}

func TestContactForm_RendersWithoutErrors(t *testing.T) {
	b := newBrowser(t, NewRouter(newTestHandler(t), zap.NewNop(), nil, time.Second))
	doc := b.open()

	if n := len(doc.AllByClass("error")); n != 0 {
		t.Errorf("error count = %d, want 0", n)
	}
	if doc.ByText("You Submitted:") != nil {
		t.Error("summary visible before any interaction")
	}
	if _, ok := b.cookies[SessionCookieName]; !ok {
		t.Error("session cookie not issued")
	}
}

func TestContactForm_RendersHeader(t *testing.T) {
	b := newBrowser(t, NewRouter(newTestHandler(t), zap.NewNop(), nil, time.Second))
	if !b.open().ContainsTextFold("contact form") {
		t.Error("contact form header missing")
	}
}

func TestContactForm_FirstNameTooShort(t *testing.T) {
	b := newBrowser(t, NewRouter(newTestHandler(t), zap.NewNop(), nil, time.Second))
	b.open()
	doc := b.typeInto("firstName", "abcd")

	if doc.ByText(firstNameErr) == nil {
		t.Errorf("missing %q", firstNameErr)
	}
	if n := len(doc.AllByClass("error")); n != 1 {
		t.Errorf("error count = %d, want 1", n)
	}
	if got := testhelpers.Value(doc.ByPlaceholder("Edd")); got != "abcd" {
		t.Errorf("firstName value = %q, want abcd", got)
	}
}

func TestContactForm_SubmitEmptyShowsThreeErrors(t *testing.T) {
	b := newBrowser(t, NewRouter(newTestHandler(t), zap.NewNop(), nil, time.Second))
	doc := b.open()
	for _, p := range []string{"Edd", "Burke", "bluebill1049@hotmail.com"} {
		if v := testhelpers.Value(doc.ByPlaceholder(p)); v != "" {
			t.Fatalf("placeholder %q value = %q, want empty", p, v)
		}
	}
	if n := len(doc.AllByRole("button")); n != 1 {
		t.Fatalf("button count = %d, want 1", n)
	}

	doc = b.clickSubmit()
	if b.last.Code != http.StatusUnprocessableEntity {
		t.Errorf("submit status = %d, want 422", b.last.Code)
	}
	for _, msg := range []string{firstNameErr, lastNameErr, emailErr} {
		if doc.ByText(msg) == nil {
			t.Errorf("missing %q", msg)
		}
	}
	if doc.ByText("You Submitted:") != nil {
		t.Error("summary visible after failed submit")
	}
}

func TestContactForm_MissingEmailOnly(t *testing.T) {
	b := newBrowser(t, NewRouter(newTestHandler(t), zap.NewNop(), nil, time.Second))
	b.open()
	b.typeInto("firstName", "Edward")
	doc := b.typeInto("lastName", "Elric")
	if v := testhelpers.Value(doc.ByPlaceholder("bluebill1049@hotmail.com")); v != "" {
		t.Fatalf("email value = %q, want empty", v)
	}

	doc = b.clickSubmit()
	if doc.ByText(firstNameErr) != nil {
		t.Errorf("unexpected %q", firstNameErr)
	}
	if doc.ByText(lastNameErr) != nil {
		t.Errorf("unexpected %q", lastNameErr)
	}
	if doc.ByText(emailErr) == nil {
		t.Errorf("missing %q", emailErr)
	}
}

func TestContactForm_InvalidEmail(t *testing.T) {
	b := newBrowser(t, NewRouter(newTestHandler(t), zap.NewNop(), nil, time.Second))
	b.open()
	doc := b.typeInto("email", "email")
	if doc.ByText(emailErr) == nil {
		t.Errorf("missing %q", emailErr)
	}
}

func TestContactForm_MissingLastName(t *testing.T) {
	b := newBrowser(t, NewRouter(newTestHandler(t), zap.NewNop(), nil, time.Second))
	doc := b.open()
	if v := testhelpers.Value(doc.ByPlaceholder("Burke")); v != "" {
		t.Fatalf("lastName value = %q, want empty", v)
	}
	doc = b.clickSubmit()
	if doc.ByText(lastNameErr) == nil {
		t.Errorf("missing %q", lastNameErr)
	}
}

func TestContactForm_SubmitShowsSummary(t *testing.T) {
	b := newBrowser(t, NewRouter(newTestHandler(t), zap.NewNop(), nil, time.Second))
	if b.open().ByText("You Submitted:") != nil {
		t.Fatal("summary visible before submit")
	}
	b.typeInto("firstName", "Edward")
	b.typeInto("lastName", "Elric")
	b.typeInto("email", "edward@alchemail.com")
	doc := b.clickSubmit()

	if b.last.Code != http.StatusOK {
		t.Errorf("submit status = %d, want 200", b.last.Code)
	}
	if doc.ByText("You Submitted:") == nil {
		t.Error("summary header missing")
	}
	for _, id := range []string{"firstnameDisplay", "lastnameDisplay", "emailDisplay"} {
		if doc.ByTestID(id) == nil {
			t.Errorf("test id %q missing", id)
		}
	}
	if doc.ByTestID("messageDisplay") != nil {
		t.Error("messageDisplay rendered without a message")
	}

	// A reload keeps showing the summary for this session.
	if b.open().ByText("You Submitted:") == nil {
		t.Error("summary lost on reload")
	}
}

func TestContactForm_SubmitAllFields(t *testing.T) {
	b := newBrowser(t, NewRouter(newTestHandler(t), zap.NewNop(), nil, time.Second))
	b.open()
	b.typeInto("firstName", "Edward")
	b.typeInto("lastName", "Elric")
	b.typeInto("email", "edward@alchemail.com")
	b.typeInto("message", "Equivalent exchange")
	doc := b.clickSubmit()

	if doc.ByText("You Submitted:") == nil {
		t.Error("summary header missing")
	}
	for _, id := range []string{"firstnameDisplay", "lastnameDisplay", "emailDisplay", "messageDisplay"} {
		if doc.ByTestID(id) == nil {
			t.Errorf("test id %q missing", id)
		}
	}
}

func TestContactForm_PlainFormPost(t *testing.T) {
	b := newBrowser(t, NewRouter(newTestHandler(t), zap.NewNop(), nil, time.Second))
	b.open()
	w := b.do("POST", "/submit", url.Values{
		"firstName": {"Edward"},
		"lastName":  {"Elric"},
		"email":     {"edward@alchemail.com"},
		"message":   {""},
		"extra":     {"ignored"},
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("submit status = %d, want 200", w.Code)
	}
	doc := testhelpers.ParseDocument(t, w.Body.String())
	if !strings.Contains(testhelpers.TextContent(doc.ByTestID("emailDisplay")), "edward@alchemail.com") {
		t.Error("emailDisplay does not show the posted email")
	}
}

func TestPostField_ChangeAfterSubmitConflicts(t *testing.T) {
	b := newBrowser(t, NewRouter(newTestHandler(t), zap.NewNop(), nil, time.Second))
	b.open()
	b.do("POST", "/submit", url.Values{
		"firstName": {"Edward"},
		"lastName":  {"Elric"},
		"email":     {"edward@alchemail.com"},
	}, nil)

	w := b.do("POST", "/fields/firstName", url.Values{"firstName": {"Al"}}, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
	doc := testhelpers.ParseDocument(t, w.Body.String())
	if !strings.Contains(testhelpers.TextContent(doc.ByTestID("firstnameDisplay")), "Edward") {
		t.Error("summary should keep the submitted firstName")
	}
}

func TestPostField_Fragment(t *testing.T) {
	b := newBrowser(t, NewRouter(newTestHandler(t), zap.NewNop(), nil, time.Second))
	w := b.do("POST", "/fields/email", url.Values{"value": {"email"}}, map[string]string{"HX-Request": "true"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, `<div id="email-error"`) {
		t.Errorf("body = %q, want email error slot fragment", body)
	}
	if testhelpers.ParseDocument(t, body).ByText(emailErr) == nil {
		t.Errorf("fragment missing %q", emailErr)
	}
}

func TestPostField_UnknownField(t *testing.T) {
	b := newBrowser(t, NewRouter(newTestHandler(t), zap.NewNop(), nil, time.Second))
	w := b.do("POST", "/fields/phone", url.Values{"phone": {"555"}}, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	var resp map[string]map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["error"]["code"] != "UNKNOWN_FIELD" {
		t.Errorf("code = %q, want UNKNOWN_FIELD", resp["error"]["code"])
	}
	if resp["error"]["requestId"] == "" {
		t.Error("requestId missing")
	}
}

func TestSessions_AreIsolated(t *testing.T) {
	router := NewRouter(newTestHandler(t), zap.NewNop(), nil, time.Second)
	alice := newBrowser(t, router)
	bob := newBrowser(t, router)
	alice.open()
	bob.open()

	alice.typeInto("firstName", "abcd")
	doc := bob.open()
	if doc.ByText(firstNameErr) != nil {
		t.Error("one session's errors leaked into another")
	}
	if alice.cookies[SessionCookieName].Value == bob.cookies[SessionCookieName].Value {
		t.Error("browsers share a session id")
	}
}

func TestSession_MalformedCookieReplaced(t *testing.T) {
	b := newBrowser(t, NewRouter(newTestHandler(t), zap.NewNop(), nil, time.Second))
	b.cookies[SessionCookieName] = &http.Cookie{Name: SessionCookieName, Value: "not-a-session"}
	b.open()
	c := b.cookies[SessionCookieName]
	if !session.ValidID(c.Value) {
		t.Errorf("cookie = %q, want a fresh session id", c.Value)
	}
	if !c.HttpOnly || c.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie flags = HttpOnly:%v SameSite:%v", c.HttpOnly, c.SameSite)
	}
}
