// internal/handlers/dogs.go
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"pawcare-back/internal/models"
	"pawcare-back/internal/repository"
	"pawcare-back/internal/storage"
	apperrors "pawcare-back/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

// DogRequest creates a dog profile. It binds from JSON or, when a
// profileImage file is attached, from a multipart form.
type DogRequest struct {
	Name             string                   `json:"name" form:"name" binding:"required"`
	Breed            string                   `json:"breed" form:"breed" binding:"required"`
	Age              int                      `json:"age" form:"age" binding:"min=0,max=30"`
	Weight           *float64                 `json:"weight" form:"weight" binding:"omitempty,gt=0"`
	Gender           string                   `json:"gender" form:"gender" binding:"omitempty,oneof=male female unknown"`
	Color            string                   `json:"color" form:"color"`
	MicrochipID      string                   `json:"microchipId" form:"microchipId"`
	Allergies        []string                 `json:"allergies" form:"allergies"`
	EmergencyContact *models.EmergencyContact `json:"emergencyContact" form:"-"`
}

// DogUpdateRequest changes only the fields that are present. Blank names
// and breeds are ignored; an empty allergies list clears them.
type DogUpdateRequest struct {
	Name             *string                  `json:"name" form:"name"`
	Breed            *string                  `json:"breed" form:"breed"`
	Age              *int                     `json:"age" form:"age" binding:"omitempty,min=0,max=30"`
	Weight           *float64                 `json:"weight" form:"weight" binding:"omitempty,gt=0"`
	Gender           *string                  `json:"gender" form:"gender" binding:"omitempty,oneof=male female unknown"`
	Color            *string                  `json:"color" form:"color"`
	MicrochipID      *string                  `json:"microchipId" form:"microchipId"`
	Allergies        []string                 `json:"allergies" form:"allergies"`
	EmergencyContact *models.EmergencyContact `json:"emergencyContact" form:"-"`
}

type MedicalEntryRequest struct {
	Condition string `json:"condition" binding:"required"`
	Treatment string `json:"treatment"`
	Vet       string `json:"vet"`
	Notes     string `json:"notes"`
}

type VaccinationRequest struct {
	Name    string     `json:"name" binding:"required"`
	Date    time.Time  `json:"date" binding:"required"`
	NextDue *time.Time `json:"nextDue"`
	Vet     string     `json:"vet"`
}

type MedicationRequest struct {
	Name      string     `json:"name" binding:"required"`
	Dosage    string     `json:"dosage"`
	Frequency string     `json:"frequency"`
	StartDate time.Time  `json:"startDate" binding:"required"`
	EndDate   *time.Time `json:"endDate"`
}

func (r DogRequest) apply(dog *models.Dog) {
	dog.Name = strings.TrimSpace(r.Name)
	dog.Breed = strings.TrimSpace(r.Breed)
	dog.Age = r.Age
	dog.Weight = r.Weight
	dog.Gender = r.Gender
	if dog.Gender == "" {
		dog.Gender = "unknown"
	}
	dog.Color = r.Color
	dog.MicrochipID = r.MicrochipID
	dog.Allergies = cleanAllergies(r.Allergies)
	if r.EmergencyContact != nil {
		dog.EmergencyContact = datatypes.NewJSONType(*r.EmergencyContact)
	}
}

func (r DogUpdateRequest) apply(dog *models.Dog) {
	if r.Name != nil {
		if name := strings.TrimSpace(*r.Name); name != "" {
			dog.Name = name
		}
	}
	if r.Breed != nil {
		if breed := strings.TrimSpace(*r.Breed); breed != "" {
			dog.Breed = breed
		}
	}
	if r.Age != nil {
		dog.Age = *r.Age
	}
	if r.Weight != nil {
		dog.Weight = r.Weight
	}
	if r.Gender != nil && *r.Gender != "" {
		dog.Gender = *r.Gender
	}
	if r.Color != nil {
		dog.Color = strings.TrimSpace(*r.Color)
	}
	if r.MicrochipID != nil {
		dog.MicrochipID = strings.TrimSpace(*r.MicrochipID)
	}
	if r.Allergies != nil {
		dog.Allergies = cleanAllergies(r.Allergies)
	}
	if r.EmergencyContact != nil {
		dog.EmergencyContact = datatypes.NewJSONType(*r.EmergencyContact)
	}
}

// cleanAllergies trims entries and splits comma-separated form values
func cleanAllergies(in []string) []string {
	allergies := make([]string, 0, len(in))
	for _, item := range in {
		for _, a := range strings.Split(item, ",") {
			if a = strings.TrimSpace(a); a != "" {
				allergies = append(allergies, a)
			}
		}
	}
	return allergies
}

// profileUpload holds a newly stored profile image and its thumbnail
type profileUpload struct {
	image string
	thumb string
}

// saveProfileImage stores the optional profileImage file of a multipart
// request. It returns nil when no file was sent. A failed thumbnail leaves
// thumb empty.
func saveProfileImage(c *gin.Context, files *storage.Gateway) (*profileUpload, error) {
	if c.ContentType() != "multipart/form-data" {
		return nil, nil
	}
	fh, err := c.FormFile("profileImage")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewValidationError("invalid profile image upload")
	}

	ctx := c.Request.Context()
	desc, err := files.Save(ctx, storage.ModalityProfile, fh)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(desc.ContentType, "image/") {
		removeStored(c, files, desc.Path)
		return nil, apperrors.NewValidationError("profile image must be an image file")
	}

	upload := &profileUpload{image: desc.Path}
	if upload.thumb, err = files.Thumbnail(ctx, desc.Path); err != nil {
		log.Warn().Err(err).Str("file", desc.Path).Msg("failed to generate thumbnail")
		upload.thumb = ""
	}
	return upload, nil
}

// discard removes the upload's files, used when the dog could not be saved
func (u *profileUpload) discard(c *gin.Context, files *storage.Gateway) {
	if u == nil {
		return
	}
	removeStored(c, files, u.image, u.thumb)
}

// removeStored deletes stored files best-effort
func removeStored(c *gin.Context, files *storage.Gateway, paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := files.Delete(c.Request.Context(), p); err != nil {
			log.Warn().Err(err).Str("file", p).Msg("failed to remove stored file")
		}
	}
}

func ListDogs(dogs *repository.DogRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := dogs.ListByOwner(c.Request.Context(), c.GetUint("userID"))
		if err != nil {
			respondError(c, err, "Failed to fetch dogs")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "dogs": list})
	}
}

func GetDog(dogs *repository.DogRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		dog, err := dogs.FindOwned(c.Request.Context(), c.GetUint("userID"), id)
		if err != nil {
			respondError(c, err, "Failed to fetch dog details")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "dog": dog})
	}
}

func CreateDog(dogs *repository.DogRepository, files *storage.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DogRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}

		upload, err := saveProfileImage(c, files)
		if err != nil {
			respondError(c, err, "Failed to save profile image")
			return
		}

		dog := models.Dog{UserID: c.GetUint("userID")}
		req.apply(&dog)
		if upload != nil {
			dog.ProfileImage, dog.ProfileThumbnail = upload.image, upload.thumb
		}
		if err := dogs.Create(c.Request.Context(), &dog); err != nil {
			upload.discard(c, files)
			respondError(c, err, "Failed to create dog profile")
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Dog profile created successfully",
			"dog":     dog,
		})
	}
}

// UpdateDog applies a partial update. A new profileImage replaces the old
// files, which are removed once the dog is saved.
func UpdateDog(dogs *repository.DogRepository, files *storage.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req DogUpdateRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}

		dog, err := dogs.FindOwned(c.Request.Context(), c.GetUint("userID"), id)
		if err != nil {
			respondError(c, err, "Failed to update dog profile")
			return
		}

		upload, err := saveProfileImage(c, files)
		if err != nil {
			respondError(c, err, "Failed to save profile image")
			return
		}

		oldImage, oldThumb := dog.ProfileImage, dog.ProfileThumbnail
		req.apply(dog)
		if upload != nil {
			dog.ProfileImage, dog.ProfileThumbnail = upload.image, upload.thumb
		}
		if err := dogs.Save(c.Request.Context(), dog); err != nil {
			upload.discard(c, files)
			respondError(c, err, "Failed to update dog profile")
			return
		}
		if upload != nil {
			removeStored(c, files, oldImage, oldThumb)
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Dog profile updated successfully",
			"dog":     dog,
		})
	}
}

// DeleteDog removes the dog together with its health logs and profile image
func DeleteDog(dogs *repository.DogRepository, files *storage.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		dog, err := dogs.FindOwned(c.Request.Context(), c.GetUint("userID"), id)
		if err != nil {
			respondError(c, err, "Failed to delete dog profile")
			return
		}
		if err := dogs.Delete(c.Request.Context(), dog); err != nil {
			respondError(c, err, "Failed to delete dog profile")
			return
		}
		removeStored(c, files, dog.ProfileImage, dog.ProfileThumbnail)

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Dog profile and all associated data deleted successfully",
		})
	}
}

func AddMedicalHistory(dogs *repository.DogRepository) gin.HandlerFunc {
	return addRecord(dogs, "Medical history entry added successfully", "Failed to add medical history entry",
		func(c *gin.Context, dog *models.Dog) error {
			var req MedicalEntryRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				return err
			}
			dog.MedicalHistory = append(dog.MedicalHistory, models.MedicalEntry{
				Date:      time.Now(),
				Condition: req.Condition,
				Treatment: req.Treatment,
				Vet:       req.Vet,
				Notes:     req.Notes,
			})
			return nil
		})
}

func AddVaccination(dogs *repository.DogRepository) gin.HandlerFunc {
	return addRecord(dogs, "Vaccination record added successfully", "Failed to add vaccination record",
		func(c *gin.Context, dog *models.Dog) error {
			var req VaccinationRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				return err
			}
			dog.Vaccinations = append(dog.Vaccinations, models.Vaccination{
				Name:    req.Name,
				Date:    req.Date,
				NextDue: req.NextDue,
				Vet:     req.Vet,
			})
			return nil
		})
}

func AddMedication(dogs *repository.DogRepository) gin.HandlerFunc {
	return addRecord(dogs, "Medication record added successfully", "Failed to add medication record",
		func(c *gin.Context, dog *models.Dog) error {
			var req MedicationRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				return err
			}
			dog.Medications = append(dog.Medications, models.Medication{
				Name:      req.Name,
				Dosage:    req.Dosage,
				Frequency: req.Frequency,
				StartDate: req.StartDate,
				EndDate:   req.EndDate,
			})
			return nil
		})
}

// addRecord loads the owned dog, lets bind append one sub-record and saves it.
// A bind error is reported as a bad request.
func addRecord(dogs *repository.DogRepository, success, failure string, bind func(*gin.Context, *models.Dog) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		dog, err := dogs.FindOwned(c.Request.Context(), c.GetUint("userID"), id)
		if err != nil {
			respondError(c, err, failure)
			return
		}
		if err := bind(c, dog); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		if err := dogs.Save(c.Request.Context(), dog); err != nil {
			respondError(c, err, failure)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": success})
	}
}
