package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scalp-backend/internal/images"
	"scalp-backend/internal/shared/auth"
	"scalp-backend/internal/survey"
)

func maleRequest() Request {
	return Request{
		Identity: auth.Identity{UserID: "google:1", Token: "tok"},
		Survey:   survey.Profile{Gender: "male", Age: 25, FamilyHistory: "none", RecentHairLossSymptom: "no", StressLevel: "low"},
		Images: map[images.View]images.Asset{
			images.ViewTop:  {ID: "t", View: images.ViewTop, FileName: "top.jpg", ContentType: "image/jpeg", Payload: []byte("top-bytes"), RemoteURL: "https://cdn/top.jpg"},
			images.ViewSide: {ID: "s", View: images.ViewSide, FileName: "side.jpg", ContentType: "image/jpeg", Payload: []byte("side-bytes"), RemoteURL: "https://cdn/side.jpg"},
		},
	}
}

func femaleRequest() Request {
	req := maleRequest()
	req.Survey.Gender = "female"
	delete(req.Images, images.ViewSide)
	return req
}

func serve(t *testing.T, status int, body string, inspect func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			inspect(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestServiceASubmitsBothImagesAndSurvey(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"stage":1,"title":"Early","description":"Mild thinning","advice":["a","b"]}`, func(r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		for _, field := range []string{"top_image", "side_image"} {
			f, _, err := r.FormFile(field)
			if !assert.NoError(t, err, field) {
				continue
			}
			data, _ := io.ReadAll(f)
			assert.NotEmpty(t, data)
		}
		assert.Equal(t, "male", r.FormValue("gender"))
		assert.Equal(t, "25", r.FormValue("age"))
		assert.Equal(t, "none", r.FormValue("family_history"))
		assert.Equal(t, "no", r.FormValue("recent_hair_loss"))
		assert.Equal(t, "low", r.FormValue("stress_level"))
		assert.Equal(t, "google:1", r.FormValue("user_id"))
		assert.Equal(t, "https://cdn/top.jpg,https://cdn/side.jpg", r.FormValue("image_url"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
	})

	d := &Dispatcher{Male: NewServiceA(srv.URL, time.Second)}
	res, err := d.Dispatch(context.Background(), maleRequest())
	require.NoError(t, err)
	assert.Equal(t, Result{Stage: 1, Title: "Early", Description: "Mild thinning", Advice: []string{"a", "b"}}, res)
}

func TestServiceBSubmitsTopImageOnly(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"analysis":{"stage":2,"title":"T","description":"D","advice":["x"]},"save_result":{"ok":true}}`, func(r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("top_image")
		assert.NoError(t, err)
		_, _, err = r.FormFile("side_image")
		assert.ErrorIs(t, err, http.ErrMissingFile)
		assert.Equal(t, "https://cdn/top.jpg", r.FormValue("image_url"))
	})

	d := &Dispatcher{Female: NewServiceB(srv.URL, time.Second)}
	res, err := d.Dispatch(context.Background(), femaleRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stage)
	assert.Equal(t, []string{"x"}, res.Advice)
}

func TestImageURLOmittedUntilAllUploadsResolve(t *testing.T) {
	req := maleRequest()
	side := req.Images[images.ViewSide]
	side.RemoteURL = ""
	req.Images[images.ViewSide] = side

	srv := serve(t, http.StatusOK, `{"stage":0,"title":"t","description":"d","advice":["a"]}`, func(r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		_, present := r.MultipartForm.Value["image_url"]
		assert.False(t, present)
	})
	d := &Dispatcher{Male: NewServiceA(srv.URL, time.Second)}
	_, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)
}

func TestMaleAdviceFallbackPerStage(t *testing.T) {
	for _, stage := range []int{0, 1, 2, 3, 7} {
		stage := stage
		t.Run(fmt.Sprintf("stage %d", stage), func(t *testing.T) {
			body := fmt.Sprintf(`{"stage":%d,"title":"t","description":"d","advice":[]}`, stage)
			srv := serve(t, http.StatusOK, body, nil)
			d := &Dispatcher{Male: NewServiceA(srv.URL, time.Second)}
			res, err := d.Dispatch(context.Background(), maleRequest())
			require.NoError(t, err)
			assert.Equal(t, DefaultAdvice(stage), res.Advice)
		})
	}
	assert.Equal(t, genericAdvice, DefaultAdvice(-1))
	assert.Equal(t, stageAdvice[2], DefaultAdvice(2))
}

func TestFemaleAdviceFallbackIsConfigurable(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"stage":1,"title":"t","description":"d"}`, nil)

	off := &Dispatcher{Female: NewServiceB(srv.URL, time.Second)}
	res, err := off.Dispatch(context.Background(), femaleRequest())
	require.NoError(t, err)
	assert.Empty(t, res.Advice)

	on := &Dispatcher{Female: NewServiceB(srv.URL, time.Second), FemaleAdviceFallback: true}
	res, err = on.Dispatch(context.Background(), femaleRequest())
	require.NoError(t, err)
	assert.Equal(t, DefaultAdvice(1), res.Advice)
}

func TestServiceErrorTextIsSurfaced(t *testing.T) {
	srv := serve(t, http.StatusBadRequest, `{"detail":"Side image does not show the scalp"}`, nil)
	d := &Dispatcher{Male: NewServiceA(srv.URL, time.Second)}
	_, err := d.Dispatch(context.Background(), maleRequest())
	require.Error(t, err)

	var dErr *Error
	require.True(t, errors.As(err, &dErr))
	assert.Equal(t, http.StatusBadRequest, dErr.Status)
	assert.Equal(t, "Side image does not show the scalp", UserMessage(err))
}

func TestServerErrorWithoutTextUsesGenericMessage(t *testing.T) {
	srv := serve(t, http.StatusInternalServerError, `<html>boom</html>`, nil)
	d := &Dispatcher{Male: NewServiceA(srv.URL, time.Second)}
	_, err := d.Dispatch(context.Background(), maleRequest())
	require.Error(t, err)
	assert.Equal(t, GenericFailureMessage, UserMessage(err))
}

func TestTimeoutUsesGenericMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	d := &Dispatcher{Male: NewServiceA(srv.URL, 20*time.Millisecond)}
	_, err := d.Dispatch(context.Background(), maleRequest())
	require.Error(t, err)
	assert.Equal(t, GenericFailureMessage, UserMessage(err))
}

func TestMalformedResponseFails(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"title":"no stage"}`, nil)
	d := &Dispatcher{Male: NewServiceA(srv.URL, time.Second)}
	_, err := d.Dispatch(context.Background(), maleRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, errMalformed)
}

func TestMissingRequiredImageFailsBeforeCall(t *testing.T) {
	called := false
	srv := serve(t, http.StatusOK, `{}`, func(r *http.Request) { called = true })
	req := maleRequest()
	delete(req.Images, images.ViewSide)

	d := &Dispatcher{Male: NewServiceA(srv.URL, time.Second)}
	_, err := d.Dispatch(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingImage)
	assert.False(t, called)
}

func TestUnknownGenderRejected(t *testing.T) {
	req := maleRequest()
	req.Survey.Gender = ""
	d := &Dispatcher{}
	_, err := d.Dispatch(context.Background(), req)
	assert.ErrorIs(t, err, ErrUnsupportedInput)
}

func TestDecodeResultStringStage(t *testing.T) {
	res, err := decodeResult([]byte(`{"stage":"3","title":" T ","description":"D","advice":["a"," ","b"]}`))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Stage)
	assert.Equal(t, "T", res.Title)
	assert.Equal(t, []string{"a", "b"}, res.Advice)
}

func TestDecodeResultRejectsMalformedStageText(t *testing.T) {
	for _, stage := range []string{`"2abc"`, `"1.5"`, `"two"`, `""`} {
		_, err := decodeResult([]byte(`{"stage":` + stage + `,"title":"T"}`))
		assert.ErrorIs(t, err, errMalformed, "stage %s", stage)
	}
	res, err := decodeResult([]byte(`{"stage":" 2 ","title":"T"}`))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stage)
}
