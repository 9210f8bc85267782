package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"safemeds-backend/models"

	"github.com/google/uuid"
)

// ==================== Staff ====================

func TestListStaff(t *testing.T) {
	db := freshDB()
	router, _ := setupStaffRouter(db)
	_, token := seedStaff(db, "one@test.com")
	inactive, _ := seedStaff(db, "two@test.com")
	db.Model(&inactive).Update("is_active", false)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/staff", nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := len(parseResponseArray(w)); got != 2 {
		t.Errorf("expected 2 staff, got %d", got)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/staff?active=true", nil, token))
	if got := len(parseResponseArray(w)); got != 1 {
		t.Errorf("expected 1 active staff, got %d", got)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/staff?department=Compounding", nil, token))
	if got := len(parseResponseArray(w)); got != 0 {
		t.Errorf("expected 0 staff in Compounding, got %d", got)
	}
}

func TestGetStaffWithSchedules(t *testing.T) {
	db := freshDB()
	router, _ := setupStaffRouter(db)
	staff, token := seedStaff(db, "detail@test.com")
	seedSchedule(db, staff.ID, time.Wednesday, "09:00", "17:00")
	seedSchedule(db, staff.ID, time.Monday, "09:00", "17:00")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/staff/"+staff.ID.String(), nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := parseResponse(w)
	schedules := resp["schedules"].([]interface{})
	if len(schedules) != 2 {
		t.Fatalf("expected 2 schedules, got %d", len(schedules))
	}
	if schedules[0].(map[string]interface{})["day_of_week"] != float64(1) {
		t.Errorf("schedules should be ordered by day of week, got %v", schedules[0])
	}
	user := resp["user"].(map[string]interface{})
	if user["email"] != "detail@test.com" {
		t.Errorf("expected user email, got %v", user["email"])
	}
	if _, ok := user["password"]; ok {
		t.Error("password should never be serialised")
	}
}

func TestGetStaffNotFound(t *testing.T) {
	db := freshDB()
	router, _ := setupStaffRouter(db)
	_, token := seedStaff(db, "missing@test.com")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/staff/"+uuid.NewString(), nil, token))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/staff/not-a-uuid", nil, token))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestCreateStaffSuccess(t *testing.T) {
	db := freshDB()
	router, _ := setupStaffRouter(db)
	_, token := seedTestUser(db, "head@test.com", models.RolePharmacist)

	body := map[string]string{
		"email":      "New.Tech@Test.com",
		"name":       "New Tech",
		"password":   "password123",
		"position":   "Pharmacy Technician",
		"department": "Dispensary",
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/staff", body, token))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["is_active"] != true {
		t.Errorf("new staff should be active, got %v", resp["is_active"])
	}
	user := resp["user"].(map[string]interface{})
	if user["email"] != "new.tech@test.com" {
		t.Errorf("email should be normalised, got %v", user["email"])
	}
	if user["role"] != models.RoleStaff {
		t.Errorf("expected default role staff, got %v", user["role"])
	}

	var count int64
	db.Model(&models.Staff{}).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 staff record, got %d", count)
	}
}

func TestCreateStaffDuplicateEmail(t *testing.T) {
	db := freshDB()
	router, _ := setupStaffRouter(db)
	_, token := seedTestUser(db, "dupadmin@test.com", models.RoleAdmin)
	seedStaff(db, "taken@test.com")

	body := map[string]string{
		"email":    "taken@test.com",
		"name":     "Someone",
		"password": "password123",
		"position": "Cashier",
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/staff", body, token))

	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateStaffAdminRequiresAdmin(t *testing.T) {
	db := freshDB()
	router, _ := setupStaffRouter(db)
	_, token := seedTestUser(db, "pharm@test.com", models.RolePharmacist)

	body := map[string]string{
		"email":    "newadmin@test.com",
		"name":     "New Admin",
		"password": "password123",
		"position": "Manager",
		"role":     "admin",
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/staff", body, token))

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateStaffForbiddenForStaff(t *testing.T) {
	db := freshDB()
	router, _ := setupStaffRouter(db)
	_, token := seedStaff(db, "plain@test.com")

	body := map[string]string{
		"email":    "another@test.com",
		"name":     "Another",
		"password": "password123",
		"position": "Cashier",
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/staff", body, token))

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateStaffValidation(t *testing.T) {
	db := freshDB()
	router, _ := setupStaffRouter(db)
	_, token := seedTestUser(db, "validadmin@test.com", models.RoleAdmin)

	body := map[string]string{
		"email":    "not-an-email",
		"name":     "Bad",
		"password": "short",
		"position": "Cashier",
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/staff", body, token))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUpdateStaffDeactivate(t *testing.T) {
	db := freshDB()
	router, _ := setupStaffRouter(db)
	_, token := seedTestUser(db, "updadmin@test.com", models.RoleAdmin)
	staff, _ := seedStaff(db, "leaving@test.com")

	body := map[string]interface{}{"is_active": false, "name": "Renamed", "position": "Senior Technician"}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", "/api/staff/"+staff.ID.String(), body, token))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["is_active"] != false {
		t.Errorf("expected is_active false, got %v", resp["is_active"])
	}
	if resp["position"] != "Senior Technician" {
		t.Errorf("expected position update, got %v", resp["position"])
	}
	if resp["user"].(map[string]interface{})["name"] != "Renamed" {
		t.Errorf("expected user name update, got %v", resp["user"])
	}
}

func TestUpdateStaffNotFound(t *testing.T) {
	db := freshDB()
	router, _ := setupStaffRouter(db)
	_, token := seedTestUser(db, "upd404@test.com", models.RoleAdmin)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", "/api/staff/"+uuid.NewString(), map[string]string{"phone": "555"}, token))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}

// ==================== Schedules ====================

func TestCreateScheduleSuccess(t *testing.T) {
	db := freshDB()
	router, _ := setupStaffRouter(db)
	_, token := seedTestUser(db, "sched@test.com", models.RolePharmacist)
	staff, _ := seedStaff(db, "rota@test.com")

	body := map[string]interface{}{
		"day_of_week": 0,
		"start_time":  "10:00",
		"end_time":    "14:00",
		"break_start": "12:00",
		"break_end":   "12:30",
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/staff/"+staff.ID.String()+"/schedules", body, token))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["day_of_week"] != float64(0) || resp["is_active"] != true {
		t.Errorf("unexpected schedule %v", resp)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/staff/"+staff.ID.String()+"/schedules", nil, token))
	if got := len(parseResponseArray(w)); got != 1 {
		t.Errorf("expected 1 schedule, got %d", got)
	}
}

func TestCreateScheduleInactive(t *testing.T) {
	db := freshDB()
	router, _ := setupStaffRouter(db)
	_, token := seedTestUser(db, "schedoff@test.com", models.RoleAdmin)
	staff, _ := seedStaff(db, "rotaoff@test.com")

	body := map[string]interface{}{"day_of_week": 2, "start_time": "09:00", "end_time": "17:00", "is_active": false}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/staff/"+staff.ID.String()+"/schedules", body, token))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var schedule models.StaffSchedule
	db.Where("staff_id = ?", staff.ID).First(&schedule)
	if schedule.IsActive {
		t.Error("schedule should be stored inactive")
	}
}

func TestCreateScheduleValidation(t *testing.T) {
	db := freshDB()
	router, _ := setupStaffRouter(db)
	_, token := seedTestUser(db, "schedbad@test.com", models.RoleAdmin)
	staff, _ := seedStaff(db, "rotabad@test.com")
	url := "/api/staff/" + staff.ID.String() + "/schedules"

	cases := []map[string]interface{}{
		{"start_time": "09:00", "end_time": "17:00"},
		{"day_of_week": 7, "start_time": "09:00", "end_time": "17:00"},
		{"day_of_week": 1, "start_time": "9am", "end_time": "17:00"},
		{"day_of_week": 1, "start_time": "25:00", "end_time": "17:00"},
		{"day_of_week": 1, "start_time": "09:00", "end_time": "09:00"},
		{"day_of_week": 1, "start_time": "09:00", "end_time": "17:00", "break_start": "12:00"},
	}
	for _, body := range cases {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, authRequest("POST", url, body, token))
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %v: expected status 400, got %d: %s", body, w.Code, w.Body.String())
		}
	}
}

func TestCreateScheduleUnknownStaff(t *testing.T) {
	db := freshDB()
	router, _ := setupStaffRouter(db)
	_, token := seedTestUser(db, "sched404@test.com", models.RoleAdmin)

	body := map[string]interface{}{"day_of_week": 1, "start_time": "09:00", "end_time": "17:00"}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/staff/"+uuid.NewString()+"/schedules", body, token))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUpdateScheduleChangesGeneratedShift(t *testing.T) {
	db := freshDB()
	router, _ := setupStaffRouter(db)
	_, token := seedTestUser(db, "schedupd@test.com", models.RoleAdmin)
	staff, _ := seedStaff(db, "moved@test.com")
	schedule := seedSchedule(db, staff.ID, time.Monday, "09:00", "17:00")

	body := map[string]interface{}{"day_of_week": 2, "start_time": "07:30", "end_time": "15:30"}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", "/api/staff/schedules/"+schedule.ID.String(), body, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if parseResponse(w)["start_time"] != "07:30" {
		t.Errorf("expected updated start time, got %v", parseResponse(w)["start_time"])
	}

	gen := map[string]string{"startDate": "2026-10-19", "endDate": "2026-10-25"}
	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/staff/shifts/generate", gen, token))
	shifts := parseResponse(w)["shifts"].([]interface{})
	if len(shifts) != 1 {
		t.Fatalf("expected 1 shift, got %d", len(shifts))
	}
	if shifts[0].(map[string]interface{})["start_time"] != "2026-10-20T07:30:00Z" {
		t.Errorf("shift should follow the moved schedule, got %v", shifts[0])
	}
}

func TestUpdateScheduleNotFound(t *testing.T) {
	db := freshDB()
	router, _ := setupStaffRouter(db)
	_, token := seedTestUser(db, "sched404upd@test.com", models.RoleAdmin)

	body := map[string]interface{}{"day_of_week": 1, "start_time": "09:00", "end_time": "17:00"}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", "/api/staff/schedules/"+uuid.NewString(), body, token))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}
