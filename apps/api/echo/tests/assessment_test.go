package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	. "github.com/trezcool/tathmini/apps/api/echo"
	"github.com/trezcool/tathmini/core/assessment"
	"github.com/trezcool/tathmini/core/user"
)

func Test_assessmentApi_checkAvailability(t *testing.T) {
	teacher := createUser(t, "Teacher One", "teach1", "teach1@test.cd", "s3cr3t", []string{user.RoleTeacher}, true)
	stud1 := createUser(t, "Student One", "stud1", "stud1@test.cd", "s3cr3t", []string{user.RoleStudent}, true)
	stud2 := createUser(t, "Student Two", "stud2", "stud2@test.cd", "s3cr3t", []string{user.RoleStudent}, true)
	noRole := createUser(t, "No Role", "norole1", "norole1@test.cd", "s3cr3t", nil, true)
	crs := createCourse(t, "Algebra", teacher.ID, stud1.ID, stud2.ID)

	aOpen := createAssessment(t, crs.ID, "Open Quiz", true, assessment.ConfigPatch{
		EndDate: strPtr("2021-03-17"),
		EndTime: strPtr("18:00"),
	})
	aUnpub := createAssessment(t, crs.ID, "Draft Quiz", false, assessment.ConfigPatch{})
	aNotStarted := createAssessment(t, crs.ID, "Tomorrow Quiz", true, assessment.ConfigPatch{
		StartDate: strPtr("2021-03-16"),
	})
	aPast := createAssessment(t, crs.ID, "Old Quiz", true, assessment.ConfigPatch{
		EndDate: strPtr("2021-03-14"),
	})
	aDisabled := createAssessment(t, crs.ID, "Hidden Quiz", true, assessment.ConfigPatch{
		StudentAccess: accessPtr(assessment.AccessDisabled),
	})
	aBad := createAssessment(t, crs.ID, "Corrupt Quiz", true, assessment.ConfigPatch{
		StartDate: strPtr("not-a-date"),
	})

	deadline := time.Date(2021, time.March, 17, 18, 0, 0, 0, time.Local)
	opensAt := time.Date(2021, time.March, 16, 0, 0, 0, 0, time.Local)
	pastDeadline := time.Date(2021, time.March, 14, 23, 59, 0, 0, time.Local)

	teacherTok := getToken(t, teacher)
	stud1Tok := getToken(t, stud1)
	noRoleTok := getToken(t, noRole)

	tests := []httpTest{
		{
			name: "no token", path: aOpen.ID, body: []byte("{}"),
			wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken),
		},
		{
			name: "student checks own availability", path: aOpen.ID, body: []byte("{}"), token: stud1Tok,
			wantCode: http.StatusOK,
			wantData: marshallObj(t, AvailabilityResponse{
				Success:       true,
				Available:     true,
				Status:        "available",
				Deadline:      &deadline,
				RemainingTime: msUntil(deadline),
			}),
		},
		{
			name: "student cannot check another student", path: aOpen.ID,
			body: marshallObj(t, CheckAvailabilityRequest{UserID: stud2.ID}), token: stud1Tok,
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "students may only check their own availability"}),
		},
		{
			name: "roleless user cannot check another user", path: aOpen.ID,
			body: marshallObj(t, CheckAvailabilityRequest{UserID: stud1.ID}), token: noRoleTok,
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "students may only check their own availability"}),
		},
		{
			name: "teacher checks on behalf of a student", path: aOpen.ID,
			body: marshallObj(t, CheckAvailabilityRequest{UserID: stud1.ID}), token: teacherTok,
			wantCode: http.StatusOK,
			wantData: marshallObj(t, AvailabilityResponse{
				Success:       true,
				Available:     true,
				Status:        "available",
				Deadline:      &deadline,
				RemainingTime: msUntil(deadline),
			}),
		},
		{
			name: "unpublished", path: aUnpub.ID, body: []byte("{}"), token: stud1Tok,
			wantCode: http.StatusOK,
			wantData: marshallObj(t, AvailabilityResponse{
				Success: true,
				Status:  "not_published",
				Reason:  "this assessment is not published",
			}),
		},
		{
			name: "access disabled", path: aDisabled.ID, body: []byte("{}"), token: stud1Tok,
			wantCode: http.StatusOK,
			wantData: marshallObj(t, AvailabilityResponse{
				Success: true,
				Status:  "access_disabled",
				Reason:  "access to this assessment is disabled",
			}),
		},
		{
			name: "not started yet", path: aNotStarted.ID, body: []byte("{}"), token: stud1Tok,
			wantCode: http.StatusOK,
			wantData: marshallObj(t, AvailabilityResponse{
				Success:     true,
				Status:      "not_started",
				Reason:      fmt.Sprintf("this assessment opens on %s", opensAt.Format("Mon, 02 Jan 2006 at 15:04")),
				AvailableAt: &opensAt,
			}),
		},
		{
			name: "deadline passed", path: aPast.ID, body: []byte("{}"), token: stud1Tok,
			wantCode: http.StatusOK,
			wantData: marshallObj(t, AvailabilityResponse{
				Success:  true,
				Status:   "deadline_passed",
				Reason:   "the submission deadline for this assessment has passed",
				Deadline: &pastDeadline,
			}),
		},
		{
			name: "malformed stored date fails closed", path: aBad.ID, body: []byte("{}"), token: stud1Tok,
			wantCode: http.StatusUnprocessableEntity,
			wantData: marshallObj(t, httpErr{Error: `malformed startDate value "not-a-date"`}),
		},
		{
			name: "unknown assessment", path: "nope", body: []byte("{}"), token: stud1Tok,
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/assessments/"+tt.path+"/check-availability", tt.token, tt.body)
			app.ServeHTTP(rec, req)

			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_assessmentApi_recordAttempt(t *testing.T) {
	teacher := createUser(t, "Teacher Two", "teach2", "teach2@test.cd", "s3cr3t", []string{user.RoleTeacher}, true)
	stud3 := createUser(t, "Student Three", "stud3", "stud3@test.cd", "s3cr3t", []string{user.RoleStudent}, true)
	stud4 := createUser(t, "Student Four", "stud4", "stud4@test.cd", "s3cr3t", []string{user.RoleStudent}, true)
	crs := createCourse(t, "Geometry", teacher.ID, stud3.ID, stud4.ID)

	aCap1 := createAssessment(t, crs.ID, "Single Try Quiz", true, assessment.ConfigPatch{})
	aMulti := createAssessment(t, crs.ID, "Retry Quiz", true, assessment.ConfigPatch{
		AllowMultipleAttempts: boolPtr(true),
	})
	aUnpub := createAssessment(t, crs.ID, "Draft Try Quiz", false, assessment.ConfigPatch{})

	stud3Tok := getToken(t, stud3)

	t.Run("no token", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/assessments/"+aCap1.ID+"/attempts", []byte("{}"))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)}, rec)
	})

	t.Run("student cannot attempt for another student", func(t *testing.T) {
		body := marshallObj(t, CheckAvailabilityRequest{UserID: stud4.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/assessments/"+aCap1.ID+"/attempts", stud3Tok, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "students may only check their own availability"}),
		}, rec)
	})

	t.Run("first attempt is recorded", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/assessments/"+aCap1.ID+"/attempts", stud3Tok, []byte("{}"))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var resp AttemptResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling AttemptResponse failed: %v", err)
		}
		if !resp.Success || resp.AttemptID == "" {
			t.Errorf("unexpected response: %+v", resp)
		}

		count, err := assessRepo.CountAttempts(context.Background(), aCap1.ID, stud3.ID)
		if err != nil {
			t.Fatalf("CountAttempts() failed: %v", err)
		}
		if count != 1 {
			t.Errorf("attempt count = %d; want 1", count)
		}
	})

	t.Run("second attempt is denied", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/assessments/"+aCap1.ID+"/attempts", stud3Tok, []byte("{}"))
		app.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusConflict,
			wantData: marshallObj(t, AvailabilityResponse{
				Status: "max_attempts_reached",
				Reason: "the maximum of 1 attempt(s) has been reached",
			}),
		}
		checkCodeAndData(t, tt, rec)

		count, err := assessRepo.CountAttempts(context.Background(), aCap1.ID, stud3.ID)
		if err != nil {
			t.Fatalf("CountAttempts() failed: %v", err)
		}
		if count != 1 {
			t.Errorf("attempt count = %d; want 1", count)
		}
	})

	t.Run("multiple attempts allowed when uncapped", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			req, rec := newAuthRequest(http.MethodPost, "/v1/assessments/"+aMulti.ID+"/attempts", stud3Tok, []byte("{}"))
			app.ServeHTTP(rec, req)
			if rec.Code != http.StatusCreated {
				t.Fatalf("attempt %d: code = %v; want %v; body %s", i+1, rec.Code, http.StatusCreated, rec.Body.String())
			}
		}
	})

	t.Run("unpublished is denied", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/assessments/"+aUnpub.ID+"/attempts", stud3Tok, []byte("{}"))
		app.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusConflict,
			wantData: marshallObj(t, AvailabilityResponse{
				Status: "not_published",
				Reason: "this assessment is not published",
			}),
		}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_assessmentApi_config(t *testing.T) {
	teacher := createUser(t, "Teacher Three", "teach3", "teach3@test.cd", "s3cr3t", []string{user.RoleTeacher}, true)
	stud5 := createUser(t, "Student Five", "stud5", "stud5@test.cd", "s3cr3t", []string{user.RoleStudent}, true)
	crs := createCourse(t, "Physics", teacher.ID, stud5.ID)

	storedPatch := assessment.ConfigPatch{TotalMarks: intPtr(80), EndDate: strPtr("2021-03-20")}
	aCfg := createAssessment(t, crs.ID, "Configured Quiz", true, storedPatch)

	teacherTok := getToken(t, teacher)
	studTok := getToken(t, stud5)

	t.Run("get resolved config", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/assessments/"+aCfg.ID+"/config", studTok)
		app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusOK, wantData: marshallObj(t, assessment.Resolve(storedPatch))}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("student cannot update config", func(t *testing.T) {
		body := marshallObj(t, assessment.ConfigPatch{PassingMarks: intPtr(50)})
		req, rec := newAuthRequest(http.MethodPut, "/v1/assessments/"+aCfg.ID+"/config", studTok, body)
		app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("teacher updates config", func(t *testing.T) {
		patch := assessment.ConfigPatch{PassingMarks: intPtr(50), EnableReminder: boolPtr(true)}
		req, rec := newAuthRequest(http.MethodPut, "/v1/assessments/"+aCfg.ID+"/config", teacherTok, marshallObj(t, patch))
		app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusOK, wantData: marshallObj(t, assessment.Resolve(storedPatch, patch))}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("malformed time of day is rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/assessments/"+aCfg.ID+"/config", teacherTok,
			[]byte(`{"startTime": "9am"}`))
		app.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"startTime": "must be a time of day in HH:MM format"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("start after end is rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/assessments/"+aCfg.ID+"/config", teacherTok,
			[]byte(`{"startDate": "2021-03-25"}`))
		app.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"startDate": "startDate must be before endDate"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("unknown assessment", func(t *testing.T) {
		body := marshallObj(t, assessment.ConfigPatch{PassingMarks: intPtr(50)})
		req, rec := newAuthRequest(http.MethodPut, "/v1/assessments/nope/config", teacherTok, body)
		app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "not found"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("unknown keys pass through", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/assessments/"+aCfg.ID+"/config", teacherTok,
			[]byte(`{"passingMarks": 30, "customFlag": true}`))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var got map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling config failed: %v", err)
		}
		if got["customFlag"] != true {
			t.Errorf("customFlag = %v; want true", got["customFlag"])
		}
		if got["passingMarks"] != float64(30) {
			t.Errorf("passingMarks = %v; want 30", got["passingMarks"])
		}

		// the unknown key survives the rewrite
		refreshed, err := assessRepo.GetAssessmentByID(context.Background(), aCfg.ID)
		if err != nil {
			t.Fatalf("GetAssessmentByID() failed: %v", err)
		}
		if refreshed.Config.Extra["customFlag"] != true {
			t.Errorf("stored customFlag = %v; want true", refreshed.Config.Extra["customFlag"])
		}
	})
}

func Test_assessmentApi_notifications(t *testing.T) {
	teacher := createUser(t, "Teacher Four", "teach4", "teach4@test.cd", "s3cr3t", []string{user.RoleTeacher}, true)
	stud6 := createUser(t, "Student Six", "stud6", "stud6@test.cd", "s3cr3t", []string{user.RoleStudent}, true)
	stud7 := createUser(t, "Student Seven", "stud7", "stud7@test.cd", "s3cr3t", []string{user.RoleStudent}, true)
	crs := createCourse(t, "Chemistry", teacher.ID, stud6.ID, stud7.ID)

	aRem := createAssessment(t, crs.ID, "Reminder Quiz", true, assessment.ConfigPatch{
		EnableReminder: boolPtr(true),
		ReminderBefore: intPtr(48),
		EndDate:        strPtr("2021-03-16"),
	})
	aQuiet := createAssessment(t, crs.ID, "Quiet Quiz", true, assessment.ConfigPatch{
		EndDate: strPtr("2021-03-16"),
	})

	teacherTok := getToken(t, teacher)
	studTok := getToken(t, stud6)

	countNotifications := func(assessmentID string, typ assessment.NotificationType) int {
		var n int
		for _, notif := range assessRepo.Notifications() {
			if notif.AssessmentID == assessmentID && notif.Type == typ {
				n++
			}
		}
		return n
	}

	t.Run("student cannot dispatch", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/assessments/"+aRem.ID+"/notifications/reminders", studTok)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"})}, rec)
	})

	t.Run("reminders fan out to enrolled students", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/assessments/"+aRem.ID+"/notifications/reminders", teacherTok)
		app.ServeHTTP(rec, req)

		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshallObj(t, SentCountResponse{Success: true, Sent: 2})}, rec)
		if n := countNotifications(aRem.ID, assessment.NotificationDeadlineReminder); n != 2 {
			t.Errorf("recorded reminders = %d; want 2", n)
		}
	})

	t.Run("reminders disabled is a no-op", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/assessments/"+aQuiet.ID+"/notifications/reminders", teacherTok)
		app.ServeHTTP(rec, req)

		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshallObj(t, SentCountResponse{Success: true, Sent: 0})}, rec)
		if n := countNotifications(aQuiet.ID, assessment.NotificationDeadlineReminder); n != 0 {
			t.Errorf("recorded reminders = %d; want 0", n)
		}
	})

	t.Run("availability notice needs the start flag", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/assessments/"+aQuiet.ID+"/notifications/availability", teacherTok)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshallObj(t, SentCountResponse{Success: true, Sent: 0})}, rec)
	})

	t.Run("closure always fans out", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/assessments/"+aQuiet.ID+"/notifications/closure", teacherTok)
		app.ServeHTTP(rec, req)

		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshallObj(t, SentCountResponse{Success: true, Sent: 2})}, rec)
		if n := countNotifications(aQuiet.ID, assessment.NotificationAssessmentClosed); n != 2 {
			t.Errorf("recorded closures = %d; want 2", n)
		}
	})
}

func Test_assessmentApi_query(t *testing.T) {
	teacher := createUser(t, "Teacher Five", "teach5", "teach5@test.cd", "s3cr3t", []string{user.RoleTeacher}, true)
	stud8 := createUser(t, "Student Eight", "stud8", "stud8@test.cd", "s3cr3t", []string{user.RoleStudent}, true)
	crs := createCourse(t, "Biology", teacher.ID, stud8.ID)

	createAssessment(t, crs.ID, "Cells Quiz", true, assessment.ConfigPatch{})
	createAssessment(t, crs.ID, "Plants Quiz", false, assessment.ConfigPatch{})

	t.Run("students cannot list", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/assessments", getToken(t, stud8))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"})}, rec)
	})

	t.Run("teacher lists course assessments", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/assessments?course_id="+crs.ID+"&ordering=title", getToken(t, teacher))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var got []assessment.Assessment
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling assessments failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("len = %d; want 2", len(got))
		}
		if got[0].Title != "Cells Quiz" || got[1].Title != "Plants Quiz" {
			t.Errorf("unexpected ordering: %q, %q", got[0].Title, got[1].Title)
		}
	})
}

func Test_assessmentApi_retrieve(t *testing.T) {
	teacher := createUser(t, "Teacher Seven", "teach7", "teach7@test.cd", "s3cr3t", []string{user.RoleTeacher}, true)
	stud := createUser(t, "Student Ten", "stud10", "stud10@test.cd", "s3cr3t", []string{user.RoleStudent}, true)
	crs := createCourse(t, "Chemistry", teacher.ID, stud.ID)

	aPub := createAssessment(t, crs.ID, "Elements Quiz", true, assessment.ConfigPatch{})
	aDraft := createAssessment(t, crs.ID, "Draft Elements Quiz", false, assessment.ConfigPatch{})

	teacherTok := getToken(t, teacher)
	studTok := getToken(t, stud)

	tests := []httpTest{
		{
			name: "no token", path: aPub.ID,
			wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken),
		},
		{
			name: "student retrieves a published assessment", path: aPub.ID, token: studTok,
			wantCode: http.StatusOK, wantData: marshallObj(t, aPub),
		},
		{
			name: "drafts are hidden from students", path: aDraft.ID, token: studTok,
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "teacher retrieves a draft", path: aDraft.ID, token: teacherTok,
			wantCode: http.StatusOK, wantData: marshallObj(t, aDraft),
		},
		{
			name: "unknown assessment", path: "nope", token: studTok,
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/assessments/"+tt.path, tt.token)
			app.ServeHTTP(rec, req)

			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_assessmentApi_sweep(t *testing.T) {
	admin := createUser(t, "Admin One", "admin1", "admin1@test.cd", "s3cr3t", user.AllRoles, true)
	teacher := createUser(t, "Teacher Six", "teach6", "teach6@test.cd", "s3cr3t", []string{user.RoleTeacher}, true)
	stud9 := createUser(t, "Student Nine", "stud9", "stud9@test.cd", "s3cr3t", []string{user.RoleStudent}, true)
	crs := createCourse(t, "History", teacher.ID, stud9.ID)

	aSweep := createAssessment(t, crs.ID, "Expired Quiz", true, assessment.ConfigPatch{
		EndDate: strPtr("2021-03-14"),
	})
	aManual := createAssessment(t, crs.ID, "Manual Close Quiz", true, assessment.ConfigPatch{
		EndDate:         strPtr("2021-03-14"),
		AutoUnavailable: boolPtr(false),
	})

	countClosures := func(assessmentID string) int {
		var n int
		for _, notif := range assessRepo.Notifications() {
			if notif.AssessmentID == assessmentID && notif.Type == assessment.NotificationAssessmentClosed {
				n++
			}
		}
		return n
	}

	t.Run("teacher cannot sweep", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/assessments/sweep", getToken(t, teacher))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"})}, rec)
	})

	t.Run("admin sweeps expired assessments", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/assessments/sweep", getToken(t, admin))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var resp SweepResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling SweepResponse failed: %v", err)
		}
		if !resp.Success || resp.Closed < 1 {
			t.Errorf("unexpected response: %+v", resp)
		}

		swept, err := assessRepo.GetAssessmentByID(context.Background(), aSweep.ID)
		if err != nil {
			t.Fatalf("GetAssessmentByID() failed: %v", err)
		}
		if swept.Published {
			t.Error("expected the expired assessment to be unpublished")
		}
		if swept.AutoUnavailableAt == nil {
			t.Error("expected AutoUnavailableAt to be stamped")
		}
		if n := countClosures(aSweep.ID); n != 1 {
			t.Errorf("closure notifications = %d; want 1", n)
		}

		manual, err := assessRepo.GetAssessmentByID(context.Background(), aManual.ID)
		if err != nil {
			t.Fatalf("GetAssessmentByID() failed: %v", err)
		}
		if !manual.Published {
			t.Error("autoUnavailable=false must not be auto-closed")
		}
	})

	t.Run("sweeping again does not re-notify", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/assessments/sweep", getToken(t, admin))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		if n := countClosures(aSweep.ID); n != 1 {
			t.Errorf("closure notifications = %d; want 1", n)
		}
	})
}
