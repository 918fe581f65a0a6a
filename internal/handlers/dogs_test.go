// internal/handlers/dogs_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pawcare-back/internal/models"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func decodeDog(t *testing.T, body []byte) models.Dog {
	t.Helper()
	var resp struct {
		Dog models.Dog `json:"dog"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp.Dog
}

func TestUpdateDog_KeepsOmittedFields(t *testing.T) {
	api := newTestAPI(t, stubClient{})
	token := api.register(t, "partial@example.com")

	w := api.do(t, http.MethodPost, "/api/dogs", token, map[string]any{
		"name": "Rex", "breed": "Beagle", "age": 4, "weight": 12.5, "color": "brown",
		"microchipId": "985112", "allergies": []string{"pollen"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	path := "/api/dogs/" + strconv.Itoa(int(decodeDog(t, w.Body.Bytes()).ID))

	w = api.do(t, http.MethodPut, path, token, map[string]any{"age": 5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(t, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	dog := decodeDog(t, w.Body.Bytes())
	assert.Equal(t, 5, dog.Age)
	assert.Equal(t, "Rex", dog.Name)
	assert.Equal(t, "Beagle", dog.Breed)
	require.NotNil(t, dog.Weight)
	assert.Equal(t, 12.5, *dog.Weight)
	assert.Equal(t, "brown", dog.Color)
	assert.Equal(t, "985112", dog.MicrochipID)
	assert.Equal(t, []string{"pollen"}, []string(dog.Allergies))

	// blank names are ignored, an explicit empty list clears allergies
	w = api.do(t, http.MethodPut, path, token, map[string]any{"name": " ", "allergies": []string{}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	dog = decodeDog(t, w.Body.Bytes())
	assert.Equal(t, "Rex", dog.Name)
	assert.Empty(t, dog.Allergies)

	w = api.do(t, http.MethodPut, path, token, map[string]any{"age": 40})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = api.do(t, http.MethodPut, path, token, map[string]any{"gender": "cat"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDogProfileImage(t *testing.T) {
	api := newTestAPI(t, stubClient{})
	token := api.register(t, "photo@example.com")

	w := api.doMultipart(t, http.MethodPost, "/api/dogs", token,
		map[string]string{"name": "Rex", "breed": "Beagle", "age": "4", "allergies": "pollen, dust"},
		map[string]map[string][]byte{"profileImage": {"rex.png": pngBytes(t, 64, 32)}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	dog := decodeDog(t, w.Body.Bytes())
	assert.Equal(t, []string{"pollen", "dust"}, []string(dog.Allergies))
	require.NotEmpty(t, dog.ProfileImage)
	require.NotEmpty(t, dog.ProfileThumbnail)
	assert.FileExists(t, filepath.Join(api.uploadDir, dog.ProfileImage))
	assert.FileExists(t, filepath.Join(api.uploadDir, dog.ProfileThumbnail))

	path := "/api/dogs/" + strconv.Itoa(int(dog.ID))
	w = api.do(t, http.MethodGet, path+"/profile-image", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = api.do(t, http.MethodGet, path+"/profile-image?size=thumb", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))

	other := api.register(t, "peek@example.com")
	w = api.do(t, http.MethodGet, path+"/profile-image", other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// a non-image upload is rejected and leaves the profile untouched
	w = api.doMultipart(t, http.MethodPut, path, token, nil,
		map[string]map[string][]byte{"profileImage": {"notes.txt": []byte("just text")}})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	// replacing the image removes the previous files
	w = api.doMultipart(t, http.MethodPut, path, token, map[string]string{"color": "black"},
		map[string]map[string][]byte{"profileImage": {"rex2.png": pngBytes(t, 20, 20)}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeDog(t, w.Body.Bytes())
	assert.NotEqual(t, dog.ProfileImage, updated.ProfileImage)
	assert.Equal(t, "black", updated.Color)
	assert.Equal(t, "Rex", updated.Name)
	assert.NoFileExists(t, filepath.Join(api.uploadDir, dog.ProfileImage))
	assert.NoFileExists(t, filepath.Join(api.uploadDir, dog.ProfileThumbnail))
	assert.FileExists(t, filepath.Join(api.uploadDir, updated.ProfileImage))

	w = api.do(t, http.MethodDelete, path, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NoFileExists(t, filepath.Join(api.uploadDir, updated.ProfileImage))
	assert.NoFileExists(t, filepath.Join(api.uploadDir, updated.ProfileThumbnail))
}

func TestGetProfileImage_NoneSet(t *testing.T) {
	api := newTestAPI(t, stubClient{})
	token := api.register(t, "noimage@example.com")
	dogID := api.createDog(t, token)

	w := api.do(t, http.MethodGet, "/api/dogs/"+strconv.Itoa(int(dogID))+"/profile-image", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
