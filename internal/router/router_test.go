package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/thenithin342/Attendance-ios/internal/attendance"
	"github.com/thenithin342/Attendance-ios/internal/config"
	"github.com/thenithin342/Attendance-ios/internal/database"
	"github.com/thenithin342/Attendance-ios/internal/models"
	"github.com/thenithin342/Attendance-ios/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	db     *gorm.DB
	hub    *attendance.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Server.Mode = gin.TestMode
	cfg.JWT.Secret = "test-secret"
	cfg.Security.BcryptCost = bcrypt.MinCost
	cfg.Security.EncryptionKey = "audit-key"

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Init(config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         "file:" + name + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.AutoMigrate(db))
	_, err = database.Seed(db, true, bcrypt.MinCost, time.Now())
	require.NoError(t, err)

	log := zap.NewNop()
	hub := attendance.NewHub()
	t.Cleanup(hub.Close)

	engine := SetupRouter(Deps{
		Config:   cfg,
		DB:       db,
		Log:      log,
		Hub:      hub,
		Sessions: session.NewStore(db, 30*time.Minute),
		Service:  attendance.NewService(db, attendance.ThresholdsFromConfig(cfg.Attendance), hub, log),
		Location: time.UTC,
	})
	return &testServer{t: t, engine: engine, db: db, hub: hub}
}

func (s *testServer) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (s *testServer) login(email, password string) string {
	s.t.Helper()
	w, env := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(s.t, http.StatusOK, w.Code, env.Message)

	var data struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	require.Equal(s.t, "bearer", data.TokenType)
	return data.AccessToken
}

const (
	facultyEmail = "dr.sharma@iiitdm.ac.in"
	student3     = "cs23i1003@iiitdm.ac.in"
	student4     = "cs23i1004@iiitdm.ac.in"
)

func TestRoot(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(http.MethodGet, "/api/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "AttendanceSync")

	w, _ = s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"email": "CS23I1099@iiitdm.ac.in", "password": "secret1",
		"full_name": "New Student", "role": "student", "batch": "batch-c",
	})
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	assert.Contains(t, string(env.Data), `"email":"cs23i1099@iiitdm.ac.in"`)

	token := s.login("cs23i1099@iiitdm.ac.in", "secret1")

	w, env = s.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"batch":"batch-c"`)

	w, _ = s.do(http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40101, env.Code)
}

func TestRegister_Rejects(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name string
		body gin.H
		msg  string
	}{
		{"foreign domain", gin.H{"email": "a@gmail.com", "password": "secret1", "full_name": "A", "role": "faculty"}, "Only @iiitdm.ac.in"},
		{"short password", gin.H{"email": "a@iiitdm.ac.in", "password": "123", "full_name": "A", "role": "faculty"}, "at least 6"},
		{"student without batch", gin.H{"email": "a@iiitdm.ac.in", "password": "secret1", "full_name": "A", "role": "student"}, "batch"},
		{"unknown batch", gin.H{"email": "a@iiitdm.ac.in", "password": "secret1", "full_name": "A", "role": "student", "batch": "batch-z"}, "Unknown batch"},
		{"duplicate email", gin.H{"email": student3, "password": "secret1", "full_name": "A", "role": "student", "batch": "batch-b"}, "Email already registered"},
		{"bad role", gin.H{"email": "a@iiitdm.ac.in", "password": "secret1", "full_name": "A", "role": "admin"}, "Invalid request"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, env := s.do(http.MethodPost, "/api/auth/register", "", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, env.Message, tc.msg)
		})
	}
}

func TestLogin_Lockout(t *testing.T) {
	s := newTestServer(t)

	for i := 0; i < 5; i++ {
		w, env := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": student4, "password": "wrong"})
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Incorrect email or password", env.Message)
	}

	w, env := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": student4, "password": database.SeedPassword})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, env.Message, "locked")
}

func TestChangePassword_RevokesOtherSessions(t *testing.T) {
	s := newTestServer(t)

	first := s.login(student3, database.SeedPassword)
	second := s.login(student3, database.SeedPassword)

	w, env := s.do(http.MethodPost, "/api/profile/password", second, gin.H{
		"old_password": database.SeedPassword, "new_password": "newsecret",
	})
	require.Equal(t, http.StatusOK, w.Code, env.Message)

	w, _ = s.do(http.MethodGet, "/api/auth/me", first, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = s.do(http.MethodGet, "/api/auth/me", second, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	s.login(student3, "newsecret")
}

func TestRoleGuards(t *testing.T) {
	s := newTestServer(t)
	student := s.login(student3, database.SeedPassword)
	faculty := s.login(facultyEmail, database.SeedPassword)

	w, env := s.do(http.MethodGet, "/api/admin/batches", student, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Faculty access required", env.Message)

	w, env = s.do(http.MethodGet, "/api/student/beacons", faculty, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Student access required", env.Message)

	w, _ = s.do(http.MethodGet, "/api/admin/batches", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRegistry(t *testing.T) {
	s := newTestServer(t)
	faculty := s.login(facultyEmail, database.SeedPassword)

	w, env := s.do(http.MethodGet, "/api/admin/batches", faculty, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var batches struct {
		Batches []struct {
			ID       string   `json:"id"`
			Students []string `json:"students"`
		} `json:"batches"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &batches))
	require.Len(t, batches.Batches, 3)
	assert.Equal(t, []string{"student-1", "student-2"}, batches.Batches[0].Students)

	w, _ = s.do(http.MethodPost, "/api/admin/batches", faculty, gin.H{"name": "Batch A again", "code": "ba2025"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env = s.do(http.MethodPost, "/api/admin/halls", faculty, gin.H{
		"name": "Hall 201", "code": "H201", "mac_address": "aa-bb-cc-dd-ee-10", "capacity": 40,
	})
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	assert.Contains(t, string(env.Data), `"mac_address":"AA:BB:CC:DD:EE:10"`)

	w, _ = s.do(http.MethodPost, "/api/admin/halls", faculty, gin.H{
		"name": "Dup", "code": "H202", "mac_address": "AA:BB:CC:DD:EE:01", "capacity": 40,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(http.MethodPost, "/api/admin/halls", faculty, gin.H{
		"name": "Zero", "code": "H203", "mac_address": "AA:BB:CC:DD:EE:20", "capacity": 0,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(http.MethodGet, "/api/admin/students?batch_id=batch-b", faculty, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), student3)
	assert.NotContains(t, string(env.Data), "cs23i1001")

	w, _ = s.do(http.MethodGet, "/api/admin/students", faculty, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWindowLifecycle(t *testing.T) {
	s := newTestServer(t)
	faculty := s.login(facultyEmail, database.SeedPassword)
	student := s.login("cs23i1001@iiitdm.ac.in", database.SeedPassword)

	now := time.Now().UTC()
	w, env := s.do(http.MethodPost, "/api/admin/attendance-window", faculty, gin.H{
		"hall_id": "hall-103", "batch_id": "batch-a",
		"start_time": now.Add(-time.Minute), "end_time": now.Add(time.Hour),
	})
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	var created struct {
		Window models.AttendanceWindow `json:"window"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "faculty-1", created.Window.CreatedBy)

	w, _ = s.do(http.MethodPost, "/api/admin/attendance-window", faculty, gin.H{
		"hall_id": "hall-103", "batch_id": "batch-a",
		"start_time": now.Add(time.Hour), "end_time": now,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodPost, "/api/admin/attendance-window", faculty, gin.H{
		"hall_id": "hall-999", "batch_id": "batch-a",
		"start_time": now, "end_time": now.Add(time.Hour),
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = s.do(http.MethodGet, "/api/student/attendance-windows", student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), created.Window.ID)
	assert.Contains(t, string(env.Data), `"hall":{`)
	assert.NotContains(t, string(env.Data), "window-2")

	w, _ = s.do(http.MethodPost, "/api/admin/attendance-window/"+created.Window.ID+"/close", faculty, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(http.MethodGet, "/api/admin/attendance-windows?active=true", faculty, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, string(env.Data), created.Window.ID)
	assert.Contains(t, string(env.Data), "window-1")

	w, _ = s.do(http.MethodPost, "/api/admin/attendance-window/nope/close", faculty, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarkAttendance(t *testing.T) {
	s := newTestServer(t)
	student := s.login(student3, database.SeedPassword)
	faculty := s.login(facultyEmail, database.SeedPassword)

	body := gin.H{
		"hall_id": "hall-102", "attendance_window_id": "window-2",
		"verification_method": "face_recognition", "face_confidence": 0.91,
		"beacon_mac": "AA:BB:CC:DD:EE:02", "beacon_rssi": -65,
	}
	w, env := s.do(http.MethodPost, "/api/student/mark-attendance", student, body)
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	assert.Contains(t, string(env.Data), "Attendance marked successfully")

	w, env = s.do(http.MethodPost, "/api/student/mark-attendance", student, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Attendance already marked", env.Message)

	w, env = s.do(http.MethodPost, "/api/student/mark-attendance", student, gin.H{
		"hall_id": "hall-101", "attendance_window_id": "window-1", "face_confidence": 0.95,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(http.MethodGet, "/api/student/attendance", student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"total":1`)

	w, env = s.do(http.MethodGet, "/api/admin/attendance/today?batch_id=batch-b", faculty, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"student_id":"student-3"`)
	assert.NotContains(t, string(env.Data), `"student_id":"student-1"`)
}

func TestMarkAttendance_Rejections(t *testing.T) {
	s := newTestServer(t)
	student := s.login(student4, database.SeedPassword)

	cases := []struct {
		name   string
		body   gin.H
		status int
		msg    string
	}{
		{"low confidence", gin.H{"hall_id": "hall-102", "attendance_window_id": "window-2", "face_confidence": 0.4}, http.StatusBadRequest, "Face verification failed"},
		{"wrong hall", gin.H{"hall_id": "hall-103", "attendance_window_id": "window-2", "face_confidence": 0.9}, http.StatusBadRequest, "Hall does not match"},
		{"unknown window", gin.H{"hall_id": "hall-102", "attendance_window_id": "nope", "face_confidence": 0.9}, http.StatusNotFound, "not found"},
		{"beacon far away", gin.H{"hall_id": "hall-102", "attendance_window_id": "window-2", "verification_method": "beacon", "beacon_rssi": -100}, http.StatusBadRequest, "out of range"},
		{"missing fields", gin.H{"face_confidence": 0.9}, http.StatusBadRequest, "Invalid request"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, env := s.do(http.MethodPost, "/api/student/mark-attendance", student, tc.body)
			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, env.Message, tc.msg)
		})
	}
}

func TestManualMark(t *testing.T) {
	s := newTestServer(t)
	faculty := s.login(facultyEmail, database.SeedPassword)

	w, env := s.do(http.MethodPost, "/api/admin/attendance/manual", faculty, gin.H{
		"student_id": "student-4", "attendance_window_id": "window-2",
	})
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	assert.Contains(t, string(env.Data), `"verification_method":"manual"`)

	w, _ = s.do(http.MethodPost, "/api/admin/attendance/manual", faculty, gin.H{
		"student_id": "ghost", "attendance_window_id": "window-2",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSync(t *testing.T) {
	s := newTestServer(t)
	student := s.login(student4, database.SeedPassword)

	entry := gin.H{
		"client_ref": "q-1", "hall_id": "hall-102", "attendance_window_id": "window-2",
		"verification_method": "face_recognition", "face_confidence": 0.88,
		"captured_at": time.Now().UTC().Add(-time.Minute),
	}
	stale := gin.H{
		"client_ref": "q-2", "hall_id": "hall-102", "attendance_window_id": "window-2",
		"face_confidence": 0.88, "captured_at": time.Now().UTC().Add(-3 * time.Hour),
	}

	w, env := s.do(http.MethodPost, "/api/attendance/sync", student, gin.H{"records": []gin.H{entry, stale, entry}})
	require.Equal(t, http.StatusOK, w.Code, env.Message)

	var data struct {
		Results []attendance.SyncResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Results, 3)
	assert.Equal(t, attendance.SyncCreated, data.Results[0].Status)
	assert.Equal(t, attendance.SyncRejected, data.Results[1].Status)
	assert.Equal(t, attendance.SyncDuplicate, data.Results[2].Status)
	assert.Equal(t, data.Results[0].RecordID, data.Results[2].RecordID)

	many := make([]gin.H, 51)
	for i := range many {
		many[i] = entry
	}
	w, _ = s.do(http.MethodPost, "/api/attendance/sync", student, gin.H{"records": many})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(t)
	faculty := s.login(facultyEmail, database.SeedPassword)

	w, env := s.do(http.MethodPost, "/api/admin/attendance/manual", faculty, gin.H{
		"student_id": "student-4", "attendance_window_id": "window-2",
	})
	require.Equal(t, http.StatusOK, w.Code, env.Message)

	w, _ = s.do(http.MethodGet, "/api/admin/attendance/export/csv", faculty, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attendance_")
	body := w.Body.String()
	assert.Contains(t, body, "Student Email")
	assert.Contains(t, body, student4+",Ananya Reddy,BB2025,H102,window-2,manual,manual")

	w, _ = s.do(http.MethodGet, "/api/admin/attendance/export/xlsx?date=2001-01-01", faculty, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))

	w, _ = s.do(http.MethodGet, "/api/admin/attendance/export/csv?date=yesterday", faculty, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuditLogs(t *testing.T) {
	s := newTestServer(t)
	faculty := s.login(facultyEmail, database.SeedPassword)

	w, _ := s.do(http.MethodPost, "/api/profile", faculty, gin.H{"full_name": "Dr. R. Sharma", "department": "CSE"})
	require.Equal(t, http.StatusOK, w.Code)

	var stored models.AuditLog
	require.NoError(t, s.db.Order("id DESC").First(&stored).Error)
	assert.NotContains(t, stored.PathEnc, "/api/profile")

	w, env := s.do(http.MethodGet, "/api/admin/logs?page_size=5", faculty, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"path":"/api/profile"`)
	assert.Contains(t, string(env.Data), "Dr. R. Sharma")
}

func TestLiveFeed(t *testing.T) {
	s := newTestServer(t)
	faculty := s.login(facultyEmail, database.SeedPassword)
	student := s.login(student3, database.SeedPassword)

	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/admin/attendance/live?window_id=window-2&token=" + faculty
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var hello map[string]interface{}
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "connected", hello["type"])

	w, env := s.do(http.MethodPost, "/api/student/mark-attendance", student, gin.H{
		"hall_id": "hall-102", "attendance_window_id": "window-2", "face_confidence": 0.9,
	})
	require.Equal(t, http.StatusOK, w.Code, env.Message)

	var msg struct {
		Type   string                  `json:"type"`
		Record models.AttendanceRecord `json:"record"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "attendance", msg.Type)
	assert.Equal(t, "student-3", msg.Record.StudentID)
}
