package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bluberry_store_v1/internal/model"
	"bluberry_store_v1/pkg/backend"
)

func newSupportFixture(t *testing.T) (*fakeBackend, *SupportService, *AuthService) {
	fb, auth, _ := newAuthFixture(t)
	ok := func(msg string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": msg})
		}
	}
	fb.mux.HandleFunc(backend.PathSubmitContact, ok("Thanks for reaching out"))
	fb.mux.HandleFunc(backend.PathSubmitReview, ok(""))
	fb.mux.HandleFunc(backend.PathRequestService, func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusBadRequest, map[string]interface{}{"zip_code": []string{"Enter a valid ZIP code."}, "detail": "Invalid ZIP"})
	})
	fb.mux.HandleFunc(backend.PathReviews, func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, []map[string]interface{}{{"full_name": "Sam", "rating": 5}})
	})
	return fb, NewSupportService(auth), auth
}

func TestSupportService_SubmitContact(t *testing.T) {
	fb, svc, _ := newSupportFixture(t)
	ctx := context.Background()

	_, err := svc.SubmitContact(ctx, &backend.ContactForm{YourName: "Sam", YourEmail: " "})
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "Missing Information", ve.Title)
	assert.Zero(t, fb.hitCount(backend.PathSubmitContact))

	n, err := svc.SubmitContact(ctx, &backend.ContactForm{YourName: " Sam ", YourEmail: "sam@example.com", YourMessage: "Do you buy pianos?"})
	require.NoError(t, err)
	assert.Equal(t, "Thanks for reaching out", n.Message)

	var sent backend.ContactForm
	require.NoError(t, json.Unmarshal(fb.lastBody(backend.PathSubmitContact), &sent))
	assert.Equal(t, "Sam", sent.YourName)
}

func TestSupportService_SubmitReview(t *testing.T) {
	fb, svc, auth := newSupportFixture(t)
	ctx := context.Background()

	_, err := svc.SubmitReview(ctx, nil, &backend.Review{FullName: "Sam", ReviewText: "Great", Rating: 9})
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "Invalid Rating", ve.Title)

	t.Run("匿名提交", func(t *testing.T) {
		n, err := svc.SubmitReview(ctx, &model.AppSession{}, &backend.Review{FullName: "Sam", ReviewText: "Great", Rating: 5})
		require.NoError(t, err)
		assert.Equal(t, "Your review has been submitted.", n.Message)
	})

	t.Run("登录后带上邮箱", func(t *testing.T) {
		sess, err := auth.Login(ctx, "jane@example.com", "secret")
		require.NoError(t, err)
		_, err = svc.SubmitReview(ctx, sess, &backend.Review{FullName: "Jane", ReviewText: "Smooth pickup", Rating: 4})
		require.NoError(t, err)

		var sent backend.Review
		require.NoError(t, json.Unmarshal(fb.lastBody(backend.PathSubmitReview), &sent))
		assert.Equal(t, "jane@example.com", sent.Email)
		assert.Equal(t, 4, sent.Rating)
	})
}

func TestSupportService_ListReviews(t *testing.T) {
	_, svc, _ := newSupportFixture(t)

	reviews, err := svc.ListReviews(context.Background())
	require.NoError(t, err)
	list, ok := reviews.([]interface{})
	require.True(t, ok)
	assert.Len(t, list, 1)
}

func TestSupportService_RequestService(t *testing.T) {
	_, svc, _ := newSupportFixture(t)
	ctx := context.Background()

	_, err := svc.RequestService(ctx, &backend.ServiceRequest{FullName: "Sam"})
	_, ok := AsValidationError(err)
	assert.True(t, ok)

	_, err = svc.RequestService(ctx, &backend.ServiceRequest{
		FullName:    "Sam",
		Email:       "sam@example.com",
		PhoneNumber: "5551234567",
		ZipCode:     "ABCDE",
		ServiceType: "estate",
	})
	ue, ok := AsUpstreamError(err)
	require.True(t, ok)
	assert.Equal(t, "Invalid ZIP", ue.Message)
}
