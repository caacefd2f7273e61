package services_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"marketplace-service/models"
	"marketplace-service/services"
)

type applicationFixture struct {
	db       *gorm.DB
	notifier *recordingNotifier
	events   *recordingPublisher
	admin    services.Caller
}

func newApplicationFixture(t *testing.T) *applicationFixture {
	t.Helper()
	db := newTestDB(t)
	admin := seedUser(t, db, models.RoleAdmin)
	return &applicationFixture{
		db:       db,
		notifier: &recordingNotifier{},
		events:   &recordingPublisher{},
		admin:    services.Caller{UserID: admin.ID, Email: admin.Email, Role: models.RoleAdmin},
	}
}

func (f *applicationFixture) service(allowReReview bool) services.ApplicationService {
	repos, uow := newRepos(f.db)
	return services.NewApplicationService(repos.Applications, uow, f.notifier, f.events, allowReReview, testLogger)
}

func (f *applicationFixture) submit(t *testing.T, svc services.ApplicationService) (*models.User, *models.Application) {
	t.Helper()
	applicant := seedUser(t, f.db, models.RoleConsumer)
	app, svcErr := svc.Submit(context.Background(),
		services.Caller{UserID: applicant.ID, Email: applicant.Email, Role: models.RoleConsumer},
		&models.CreateApplicationRequest{BusinessName: "Hill Farm", Description: "Organic vegetables and eggs"})
	require.Nil(t, svcErr)
	assert.Equal(t, models.ApplicationPending, app.Status)
	return applicant, app
}

func TestReview_ApprovalPromotesAndNotifiesOnce(t *testing.T) {
	f := newApplicationFixture(t)
	svc := f.service(false)
	applicant, app := f.submit(t, svc)

	reviewed, svcErr := svc.Review(context.Background(), f.admin, app.ID, &models.ReviewApplicationRequest{Status: models.ApplicationApproved})
	require.Nil(t, svcErr)
	assert.Equal(t, models.ApplicationApproved, reviewed.Status)

	refetched, svcErr := svc.Get(context.Background(), app.ID)
	require.Nil(t, svcErr)
	assert.Equal(t, models.ApplicationApproved, refetched.Status)
	require.NotNil(t, refetched.ReviewedBy)
	assert.Equal(t, f.admin.UserID, *refetched.ReviewedBy)

	var user models.User
	require.NoError(t, f.db.First(&user, "id = ?", applicant.ID).Error)
	assert.Equal(t, models.RoleProvider, user.Role)

	assert.Equal(t, []string{services.TemplateApplicationApproved}, f.notifier.templates())
	assert.Equal(t, applicant.Email, f.notifier.sent[0].To)
	assert.Equal(t, []string{models.EventApplicationReviewed}, f.events.types())
}

func TestReview_RejectionRequiresNotes(t *testing.T) {
	f := newApplicationFixture(t)
	svc := f.service(false)
	_, app := f.submit(t, svc)

	_, svcErr := svc.Review(context.Background(), f.admin, app.ID, &models.ReviewApplicationRequest{Status: models.ApplicationRejected, AdminNotes: "   "})
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
	assert.Equal(t, "Admin notes required when rejecting an application", svcErr.Message)
	assert.Empty(t, f.notifier.templates())

	refetched, svcErr := svc.Get(context.Background(), app.ID)
	require.Nil(t, svcErr)
	assert.Equal(t, models.ApplicationPending, refetched.Status)
}

func TestReview_RejectionWithNotes(t *testing.T) {
	f := newApplicationFixture(t)
	svc := f.service(false)
	applicant, app := f.submit(t, svc)

	reviewed, svcErr := svc.Review(context.Background(), f.admin, app.ID, &models.ReviewApplicationRequest{
		Status: models.ApplicationRejected, AdminNotes: "Missing food safety certificate",
	})
	require.Nil(t, svcErr)
	assert.Equal(t, "Missing food safety certificate", reviewed.AdminNotes)

	var user models.User
	require.NoError(t, f.db.First(&user, "id = ?", applicant.ID).Error)
	assert.Equal(t, models.RoleConsumer, user.Role)
	assert.Equal(t, []string{services.TemplateApplicationRejected}, f.notifier.templates())
}

func TestReview_AlreadyReviewed(t *testing.T) {
	f := newApplicationFixture(t)
	svc := f.service(false)
	_, app := f.submit(t, svc)

	_, svcErr := svc.Review(context.Background(), f.admin, app.ID, &models.ReviewApplicationRequest{Status: models.ApplicationApproved})
	require.Nil(t, svcErr)
	_, svcErr = svc.Review(context.Background(), f.admin, app.ID, &models.ReviewApplicationRequest{Status: models.ApplicationApproved})
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusConflict, svcErr.StatusCode)
	assert.Len(t, f.notifier.templates(), 1)
}

func TestReview_ReReviewDemotesWhenAllowed(t *testing.T) {
	f := newApplicationFixture(t)
	svc := f.service(true)
	applicant, app := f.submit(t, svc)

	_, svcErr := svc.Review(context.Background(), f.admin, app.ID, &models.ReviewApplicationRequest{Status: models.ApplicationApproved})
	require.Nil(t, svcErr)
	_, svcErr = svc.Review(context.Background(), f.admin, app.ID, &models.ReviewApplicationRequest{
		Status: models.ApplicationRejected, AdminNotes: "Licence revoked",
	})
	require.Nil(t, svcErr)

	var user models.User
	require.NoError(t, f.db.First(&user, "id = ?", applicant.ID).Error)
	assert.Equal(t, models.RoleConsumer, user.Role)
}

func TestReview_UnknownApplication(t *testing.T) {
	f := newApplicationFixture(t)

	_, svcErr := f.service(false).Review(context.Background(), f.admin, uuid.New(), &models.ReviewApplicationRequest{Status: models.ApplicationApproved})
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusNotFound, svcErr.StatusCode)
	assert.Empty(t, f.notifier.templates())
}

func TestSubmit_RejectsSecondPendingApplication(t *testing.T) {
	f := newApplicationFixture(t)
	svc := f.service(false)
	applicant, _ := f.submit(t, svc)

	_, svcErr := svc.Submit(context.Background(),
		services.Caller{UserID: applicant.ID, Role: models.RoleConsumer},
		&models.CreateApplicationRequest{BusinessName: "Hill Farm", Description: "Organic vegetables and eggs"})
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusConflict, svcErr.StatusCode)
}
