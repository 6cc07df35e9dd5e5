package middleware

import (
	"context"
	"testing"

	"job-board-go/internal/constants"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/stretchr/testify/assert"
)

func TestRequireRecruiterRejectsCandidate(t *testing.T) {
	mw := RequireRecruiter()

	c := app.NewContext(0)
	c.Set(CtxKeyUserType, constants.UserTypeCandidate)

	mw(context.Background(), c)
	assert.Equal(t, consts.StatusForbidden, c.Response.StatusCode())
}

func TestRequireCandidateRejectsRecruiter(t *testing.T) {
	mw := RequireCandidate()

	c := app.NewContext(0)
	c.Set(CtxKeyUserType, constants.UserTypeRecruiter)

	mw(context.Background(), c)
	assert.Equal(t, consts.StatusForbidden, c.Response.StatusCode())
}

func TestRequireUserTypeRejectsMissingIdentity(t *testing.T) {
	mw := RequireUserType(constants.UserTypeRecruiter)

	c := app.NewContext(0)

	mw(context.Background(), c)
	assert.Equal(t, consts.StatusForbidden, c.Response.StatusCode())
}

func TestRequireUserTypeAllowsMatch(t *testing.T) {
	mw := RequireUserType(constants.UserTypeRecruiter)

	c := app.NewContext(0)
	c.Set(CtxKeyUserType, constants.UserTypeRecruiter)

	mw(context.Background(), c)
	// 放行时不写入错误响应
	assert.NotEqual(t, consts.StatusForbidden, c.Response.StatusCode())
}
