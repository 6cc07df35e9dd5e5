package handler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"job-board-go/internal/api/middleware"
	"job-board-go/internal/config"
	"job-board-go/internal/storage"
	"job-board-go/internal/storage/models"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newJSONRequestContext(body string) *app.RequestContext {
	c := app.NewContext(0)
	c.Request.SetBody([]byte(body))
	c.Request.Header.SetContentTypeBytes([]byte("application/json"))
	c.Request.Header.SetMethod("POST")
	return c
}

func TestNormalizeSkills(t *testing.T) {
	got := normalizeSkills([]string{" Go ", "", "  ", "MySQL", "docker"})
	assert.Equal(t, []string{"Go", "MySQL", "docker"}, got)

	assert.Empty(t, normalizeSkills(nil))
}

func TestSkillsToJSONRoundtrip(t *testing.T) {
	data := skillsToJSON([]string{"Go", "MySQL"})
	skills, err := models.JSONToSlice(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "MySQL"}, skills)

	// nil 列表落空数组而不是 null
	assert.Equal(t, datatypes.JSON(`[]`), skillsToJSON(nil))
}

func TestToJobResponse(t *testing.T) {
	job := &models.Job{
		JobID:       "job-1",
		Title:       "Backend Engineer",
		Details:     "build services",
		SkillsJSON:  datatypes.JSON(`["go","mysql"]`),
		RecruiterID: "rec-1",
		IsClosed:    false,
	}
	resp := toJobResponse(job)
	assert.Equal(t, "job-1", resp.JobID)
	assert.Equal(t, []string{"go", "mysql"}, resp.Skills)
	assert.False(t, resp.IsClosed)
}

func TestToJobResponseMalformedSkills(t *testing.T) {
	job := &models.Job{
		JobID:      "job-1",
		SkillsJSON: datatypes.JSON(`{{not json`),
	}
	resp := toJobResponse(job)
	assert.Equal(t, []string{}, resp.Skills)
}

func TestToApplicationResponse(t *testing.T) {
	score := 85.0
	appRecord := &models.Application{
		ApplicationID:      "app-1",
		CandidateID:        "cand-1",
		JobID:              "job-1",
		Status:             "Applied",
		CompatibilityScore: &score,
		Feedback:           "Strong match! Your skills align well with this job.",
		MatchedSkillsJSON:  datatypes.JSON(`["go"]`),
		MissingSkillsJSON:  datatypes.JSON(`["kubernetes"]`),
		CreatedAt:          time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Job:                &models.Job{Title: "Backend Engineer"},
	}
	resp := toApplicationResponse(appRecord)
	assert.Equal(t, "app-1", resp.ApplicationID)
	assert.Equal(t, "Backend Engineer", resp.JobTitle)
	require.NotNil(t, resp.Score)
	assert.InDelta(t, 85.0, *resp.Score, 0.001)
	assert.Equal(t, []string{"go"}, resp.MatchedSkills)
	assert.Equal(t, []string{"kubernetes"}, resp.MissingSkills)
	assert.Equal(t, "2025-06-01T12:00:00Z", resp.CreatedAt)
}

func TestApplyRejectsMissingJobID(t *testing.T) {
	h := NewApplicationHandler(&config.Config{}, &storage.Storage{}, nil)

	c := newJSONRequestContext(`{"resume_text":"Skills: go"}`)
	c.Set(middleware.CtxKeyUserID, "cand-1")

	h.Apply(context.Background(), c)
	assert.Equal(t, consts.StatusBadRequest, c.Response.StatusCode())
}

func TestApplyRejectsMalformedBody(t *testing.T) {
	h := NewApplicationHandler(&config.Config{}, &storage.Storage{}, nil)

	c := newJSONRequestContext(`{{`)
	c.Set(middleware.CtxKeyUserID, "cand-1")

	h.Apply(context.Background(), c)
	assert.Equal(t, consts.StatusBadRequest, c.Response.StatusCode())
}

func TestRegisterValidation(t *testing.T) {
	h := NewAuthHandler(&config.Config{}, &storage.Storage{})

	tests := []struct {
		name string
		body string
	}{
		{"密码过短", `{"username":"u1","email":"u1@example.com","password":"123","user_type":"candidate"}`},
		{"非法用户类型", `{"username":"u1","email":"u1@example.com","password":"secret123","user_type":"admin"}`},
		{"缺少用户名", `{"email":"u1@example.com","password":"secret123","user_type":"candidate"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newJSONRequestContext(tt.body)
			h.Register(context.Background(), c)
			assert.Equal(t, consts.StatusBadRequest, c.Response.StatusCode())
		})
	}
}

func TestJobCreateRequiresTitle(t *testing.T) {
	h := NewJobHandler(&config.Config{}, &storage.Storage{})

	c := newJSONRequestContext(`{"details":"no title","skills":["go"]}`)
	c.Set(middleware.CtxKeyUserID, "rec-1")

	h.Create(context.Background(), c)
	assert.Equal(t, consts.StatusBadRequest, c.Response.StatusCode())
}

func TestUpdateStatusRejectsInvalidStatus(t *testing.T) {
	h := NewApplicationHandler(&config.Config{}, &storage.Storage{}, nil)

	c := newJSONRequestContext(`{"status":"Hired"}`)
	c.Set(middleware.CtxKeyUserID, "rec-1")

	h.UpdateStatus(context.Background(), c)
	assert.Equal(t, consts.StatusBadRequest, c.Response.StatusCode())

	var body map[string]string
	require.NoError(t, json.Unmarshal(c.Response.Body(), &body))
	assert.Contains(t, body["error"], "无效")
}
