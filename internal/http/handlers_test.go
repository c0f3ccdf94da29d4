package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage-chatbot/internal/data"
	"triage-chatbot/internal/db"
	"triage-chatbot/internal/engine"
	"triage-chatbot/internal/lang"
	"triage-chatbot/internal/model"
	"triage-chatbot/pkg"
)

const testTrainingCSV = `itching,skin_rash,chills,joint_pain,stomach_pain,vomit,fatigue,headache,nausea,fever,cough,muscle_pain,diarrhea,sore_throat,prognosis
1,1,1,0,0,0,0,0,0,0,0,0,0,0,Allergy
1,1,0,0,0,0,0,0,0,0,0,0,0,0,Allergy
0,0,1,1,0,1,1,1,1,1,1,1,0,1,Common Cold
0,0,1,0,0,0,0,0,0,1,1,0,0,0,Common Cold
0,0,0,0,0,0,0,0,0,1,0,0,0,0,Common Cold
0,0,0,0,0,0,0,1,1,0,0,0,0,0,Migraine
0,0,0,0,0,0,0,1,0,0,0,0,0,0,Migraine
`

// fakeRepo is an in-memory Repo for handler tests.
type fakeRepo struct {
	users     map[string]string // username -> password
	ids       map[string]string // username -> id
	diagnoses []pkg.DiagnosisRecord
	nextID    int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[string]string), ids: make(map[string]string)}
}

func (f *fakeRepo) CreateUser(_ context.Context, username, password string) (*pkg.User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required")
	}
	if _, ok := f.users[username]; ok {
		return nil, fmt.Errorf("username %q is taken", username)
	}
	f.users[username] = password
	id := fmt.Sprintf("user-%d", len(f.ids)+1)
	f.ids[username] = id
	return &pkg.User{ID: id, Username: username}, nil
}

func (f *fakeRepo) Authenticate(_ context.Context, username, password string) (*pkg.User, error) {
	if pw, ok := f.users[username]; !ok || pw != password {
		return nil, db.ErrBadCredentials
	}
	return &pkg.User{ID: f.ids[username], Username: username}, nil
}

func (f *fakeRepo) GetUser(_ context.Context, id string) (*pkg.User, error) {
	for username, uid := range f.ids {
		if uid == id {
			return &pkg.User{ID: uid, Username: username}, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeRepo) InsertDiagnosis(_ context.Context, rec *pkg.DiagnosisRecord) error {
	f.nextID++
	rec.ID = f.nextID
	f.diagnoses = append(f.diagnoses, *rec)
	return nil
}

func (f *fakeRepo) ListDiagnoses(_ context.Context, userID string, _ int) ([]pkg.DiagnosisRecord, error) {
	var out []pkg.DiagnosisRecord
	for i := len(f.diagnoses) - 1; i >= 0; i-- {
		if f.diagnoses[i].UserID == userID {
			out = append(out, f.diagnoses[i])
		}
	}
	return out, nil
}

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	ds, err := data.LoadDataset(strings.NewReader(testTrainingCSV))
	require.NoError(t, err)
	labels, y := ds.EncodeLabels()
	forest, err := model.Fit(ds.Columns, labels, ds.Rows, y, model.FitConfig{Trees: 40, MaxDepth: 10, Seed: 42})
	require.NoError(t, err)
	ref := &data.Reference{
		Descriptions: map[string]string{
			"Common Cold": "An upper respiratory viral infection.",
		},
		Precautions: map[string][]string{
			"Common Cold": {"drink vitamin c rich drinks", "take vapour", "avoid cold food", "keep fever in check"},
		},
		Severity: map[string]int{"fever": 5, "cough": 3, "chills": 3},
	}
	eng, err := engine.New(forest, ds, ref)
	require.NoError(t, err)
	return eng
}

type testClient struct {
	t      *testing.T
	server *Server
	repo   *fakeRepo
	mock   *lang.MockProvider
	token  string
}

func newTestClient(t *testing.T) *testClient {
	t.Helper()
	repo := newFakeRepo()
	mock := lang.NewMockProvider()
	srv := NewServer(repo, newTestEngine(t), mock, []byte("test-secret"), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	return &testClient{t: t, server: srv, repo: repo, mock: mock}
}

func (c *testClient) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.server.ServeHTTP(w, req)
	return w
}

func (c *testClient) register(username string) {
	c.t.Helper()
	w := c.do(http.MethodPost, "/api/register", pkg.RegisterRequest{Username: username, Password: "hunter22"})
	require.Equal(c.t, http.StatusCreated, w.Code, w.Body.String())
	var resp pkg.TokenResponse
	require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(c.t, resp.Token)
	c.token = resp.Token
}

func (c *testClient) createSession() string {
	c.t.Helper()
	w := c.do(http.MethodPost, "/api/sessions", nil)
	require.Equal(c.t, http.StatusCreated, w.Code, w.Body.String())
	var resp map[string]string
	require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(c.t, resp["session_id"])
	return resp["session_id"]
}

func TestRegisterAndLogin(t *testing.T) {
	c := newTestClient(t)
	c.register("alice")

	w := c.do(http.MethodPost, "/api/login", pkg.LoginRequest{Username: "alice", Password: "hunter22"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp pkg.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice", resp.User.Username)

	w = c.do(http.MethodPost, "/api/login", pkg.LoginRequest{Username: "alice", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	c := newTestClient(t)
	c.register("alice")
	w := c.do(http.MethodPost, "/api/register", pkg.RegisterRequest{Username: "alice", Password: "other"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionRejectsTokenForMissingAccount(t *testing.T) {
	c := newTestClient(t)
	token, err := signToken([]byte("test-secret"), "no-such-user")
	require.NoError(t, err)
	c.token = token

	w := c.do(http.MethodPost, "/api/sessions", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionRequiresAuth(t *testing.T) {
	c := newTestClient(t)
	w := c.do(http.MethodPost, "/api/sessions", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = c.do(http.MethodGet, "/api/history", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDiagnosisFlow(t *testing.T) {
	c := newTestClient(t)
	c.register("alice")
	id := c.createSession()

	w := c.do(http.MethodPost, "/api/sessions/"+id+"/symptoms",
		pkg.SymptomTextRequest{PatientName: "Jordan", Text: "I have fever and cough"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var intake pkg.IntakeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &intake))
	assert.Equal(t, []string{"cough", "fever"}, intake.DetectedSymptoms)
	assert.Equal(t, "Common Cold", intake.InitialLabel)
	assert.NotEmpty(t, intake.Questions)

	w = c.do(http.MethodGet, "/api/sessions/"+id+"/questions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var q map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))
	assert.Equal(t, intake.Questions, q["questions"])

	w = c.do(http.MethodPost, "/api/sessions/"+id+"/answers",
		pkg.GuidedAnswersRequest{Confirmed: []string{"chills"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var diag pkg.DiagnosisResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &diag))
	assert.Equal(t, "Common Cold", diag.FinalLabel)
	assert.Equal(t, []string{"chills", "cough", "fever"}, diag.Symptoms)
	assert.Equal(t, "An upper respiratory viral infection.", diag.Description)
	assert.Len(t, diag.Precautions, 4)
	assert.NotEmpty(t, diag.Advisory)

	// The completed diagnosis lands in history.
	w = c.do(http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []pkg.DiagnosisRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, "Common Cold", history[0].FinalLabel)
	assert.Equal(t, "Jordan", history[0].PatientName)

	// Report and audio are available once complete.
	w = c.do(http.MethodGet, "/api/sessions/"+id+"/report", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	w = c.do(http.MethodPost, "/api/sessions/"+id+"/audio", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestSymptomsWithNoMatchesKeepsSessionUsable(t *testing.T) {
	c := newTestClient(t)
	c.register("alice")
	id := c.createSession()

	w := c.do(http.MethodPost, "/api/sessions/"+id+"/symptoms",
		pkg.SymptomTextRequest{Text: "the weather is lovely today"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = c.do(http.MethodPost, "/api/sessions/"+id+"/symptoms",
		pkg.SymptomTextRequest{Text: "fever and chills"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAnswersBeforeSymptomsConflicts(t *testing.T) {
	c := newTestClient(t)
	c.register("alice")
	id := c.createSession()

	w := c.do(http.MethodPost, "/api/sessions/"+id+"/answers",
		pkg.GuidedAnswersRequest{Confirmed: []string{"fever"}})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestReportBeforeCompleteConflicts(t *testing.T) {
	c := newTestClient(t)
	c.register("alice")
	id := c.createSession()

	w := c.do(http.MethodGet, "/api/sessions/"+id+"/report", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = c.do(http.MethodPost, "/api/sessions/"+id+"/audio", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSessionsAreOwnerScoped(t *testing.T) {
	c := newTestClient(t)
	c.register("alice")
	id := c.createSession()

	other := &testClient{t: t, server: c.server, repo: c.repo, mock: c.mock}
	other.register("bob")
	w := other.do(http.MethodPost, "/api/sessions/"+id+"/symptoms",
		pkg.SymptomTextRequest{Text: "fever"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnknownSessionIs404(t *testing.T) {
	c := newTestClient(t)
	c.register("alice")
	w := c.do(http.MethodGet, "/api/sessions/nope/questions", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResetAllowsNewDiagnosis(t *testing.T) {
	c := newTestClient(t)
	c.register("alice")
	id := c.createSession()

	w := c.do(http.MethodPost, "/api/sessions/"+id+"/symptoms",
		pkg.SymptomTextRequest{Text: "headache and nausea"})
	require.Equal(t, http.StatusOK, w.Code)

	w = c.do(http.MethodPost, "/api/sessions/"+id+"/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = c.do(http.MethodPost, "/api/sessions/"+id+"/symptoms",
		pkg.SymptomTextRequest{Text: "itching and skin rash"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIntakeTranslatesNonEnglishText(t *testing.T) {
	c := newTestClient(t)
	c.mock.Translations["tengo fiebre y tos"] = "I have fever and cough"
	c.register("alice")
	id := c.createSession()

	w := c.do(http.MethodPost, "/api/sessions/"+id+"/symptoms",
		pkg.SymptomTextRequest{Text: "tengo fiebre y tos", Lang: "es"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var intake pkg.IntakeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &intake))
	assert.Equal(t, []string{"cough", "fever"}, intake.DetectedSymptoms)

	require.NotEmpty(t, c.mock.Calls)
	assert.Equal(t, "en", c.mock.Calls[0].TargetLang)

	// Final-diagnosis fields come back in the user's language.
	w = c.do(http.MethodPost, "/api/sessions/"+id+"/answers", pkg.GuidedAnswersRequest{})
	require.Equal(t, http.StatusOK, w.Code)
	translated := 0
	for _, call := range c.mock.Calls {
		if call.Op == "translate" && call.TargetLang == "es" {
			translated++
		}
	}
	assert.Greater(t, translated, 0)
}

func TestTranslatedDiagnosisLeavesEnglishDataIntact(t *testing.T) {
	c := newTestClient(t)
	c.mock.Translations["drink vitamin c rich drinks"] = "toma bebidas ricas en vitamina c"
	c.mock.Translations["take vapour"] = "toma vapor"
	c.register("alice")

	// A Spanish-language diagnosis gets translated precautions.
	id := c.createSession()
	w := c.do(http.MethodPost, "/api/sessions/"+id+"/symptoms",
		pkg.SymptomTextRequest{Text: "I have fever and cough", Lang: "es"})
	require.Equal(t, http.StatusOK, w.Code)
	w = c.do(http.MethodPost, "/api/sessions/"+id+"/answers", pkg.GuidedAnswersRequest{})
	require.Equal(t, http.StatusOK, w.Code)
	var spanish pkg.DiagnosisResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &spanish))
	assert.Equal(t, "toma bebidas ricas en vitamina c", spanish.Precautions[0])

	// A later English diagnosis on the same server sees the original text.
	id = c.createSession()
	w = c.do(http.MethodPost, "/api/sessions/"+id+"/symptoms",
		pkg.SymptomTextRequest{Text: "I have fever and cough"})
	require.Equal(t, http.StatusOK, w.Code)
	w = c.do(http.MethodPost, "/api/sessions/"+id+"/answers", pkg.GuidedAnswersRequest{})
	require.Equal(t, http.StatusOK, w.Code)
	var english pkg.DiagnosisResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &english))
	assert.Equal(t, "drink vitamin c rich drinks", english.Precautions[0])
	assert.Equal(t, "take vapour", english.Precautions[1])

	// The persisted history rows stay English regardless of the request
	// language.
	w = c.do(http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []pkg.DiagnosisRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history, 2)
	for _, rec := range history {
		assert.Equal(t, "drink vitamin c rich drinks", rec.Precautions[0])
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	c := newTestClient(t)
	w := c.do(http.MethodGet, "/api/nothing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
