// internal/models/models.go
package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	Email     string         `gorm:"unique;not null" json:"email"`
	Password  string         `gorm:"not null" json:"-"`
	Name      string         `gorm:"not null" json:"name"`
	Phone     string         `json:"phone,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Dogs []Dog `gorm:"foreignKey:UserID" json:"dogs,omitempty"`
}

type Dog struct {
	ID               uint                                 `gorm:"primarykey" json:"id"`
	UserID           uint                                 `gorm:"not null;index" json:"owner"`
	Name             string                               `gorm:"not null" json:"name"`
	Breed            string                               `gorm:"not null" json:"breed"`
	Age              int                                  `json:"age"`
	Weight           *float64                             `json:"weight,omitempty"`
	Gender           string                               `gorm:"default:'unknown'" json:"gender"` // male, female, unknown
	Color            string                               `json:"color,omitempty"`
	MicrochipID      string                               `json:"microchipId,omitempty"`
	ProfileImage     string                               `json:"profileImage,omitempty"`
	ProfileThumbnail string                               `json:"profileThumbnail,omitempty"`
	Allergies        datatypes.JSONSlice[string]          `json:"allergies"`
	MedicalHistory   datatypes.JSONSlice[MedicalEntry]    `json:"medicalHistory,omitempty"`
	Vaccinations     datatypes.JSONSlice[Vaccination]     `json:"vaccinations,omitempty"`
	Medications      datatypes.JSONSlice[Medication]      `json:"medications,omitempty"`
	EmergencyContact datatypes.JSONType[EmergencyContact] `json:"emergencyContact"`
	CreatedAt        time.Time                            `json:"createdAt"`
	UpdatedAt        time.Time                            `json:"updatedAt"`
	DeletedAt        gorm.DeletedAt                       `gorm:"index" json:"-"`
}

type MedicalEntry struct {
	Date      time.Time `json:"date"`
	Condition string    `json:"condition"`
	Treatment string    `json:"treatment"`
	Vet       string    `json:"vet"`
	Notes     string    `json:"notes"`
}

type Vaccination struct {
	Name    string     `json:"name"`
	Date    time.Time  `json:"date"`
	NextDue *time.Time `json:"nextDue,omitempty"`
	Vet     string     `json:"vet"`
}

type Medication struct {
	Name      string     `json:"name"`
	Dosage    string     `json:"dosage"`
	Frequency string     `json:"frequency"`
	StartDate time.Time  `json:"startDate"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

type EmergencyContact struct {
	VetName    string `json:"vetName,omitempty"`
	VetPhone   string `json:"vetPhone,omitempty"`
	VetAddress string `json:"vetAddress,omitempty"`
}

// AnalysisStatus is the lifecycle of a health log's AI analysis:
// pending -> processing -> completed | failed.
type AnalysisStatus string

const (
	AnalysisPending    AnalysisStatus = "pending"
	AnalysisProcessing AnalysisStatus = "processing"
	AnalysisCompleted  AnalysisStatus = "completed"
	AnalysisFailed     AnalysisStatus = "failed"
)

// Terminal reports whether no further transition can happen.
func (s AnalysisStatus) Terminal() bool {
	return s == AnalysisCompleted || s == AnalysisFailed
}

type Urgency string

const (
	UrgencyLow       Urgency = "low"
	UrgencyMedium    Urgency = "medium"
	UrgencyHigh      Urgency = "high"
	UrgencyEmergency Urgency = "emergency"
)

// Rank orders urgencies from low (0) to emergency (3).
func (u Urgency) Rank() int {
	switch u {
	case UrgencyMedium:
		return 1
	case UrgencyHigh:
		return 2
	case UrgencyEmergency:
		return 3
	default:
		return 0
	}
}

type FileDescriptor struct {
	StoredName   string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	Duration     *int      `json:"duration,omitempty"` // audio only, seconds
	ContentType  string    `json:"contentType,omitempty"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

type Symptoms struct {
	Text      string `gorm:"type:text" json:"text"`
	Severity  string `gorm:"default:'unknown'" json:"severity"` // mild, moderate, severe, critical, unknown
	Duration  string `json:"duration"`
	Frequency string `json:"frequency"`
}

// AnalysisResults is the merged diagnosis written once the analysis completes.
type AnalysisResults struct {
	Diagnosis         string          `json:"diagnosis"`
	PrimaryDiagnosis  string          `json:"primaryDiagnosis"`
	Confidence        int             `json:"confidence"`
	Urgency           Urgency         `json:"urgency"`
	Recommendations   []string        `json:"recommendations"`
	SuggestedActions  []string        `json:"suggestedActions"`
	VetRecommendation bool            `json:"vetRecommendation"`
	ProcessedAt       time.Time       `json:"processedAt"`
	AnalysisDetails   AnalysisDetails `json:"analysisDetails"`
}

// AnalysisDetails keeps each modality's raw payload as received.
type AnalysisDetails struct {
	Text  json.RawMessage `json:"text"`
	Image json.RawMessage `json:"image"`
	Audio json.RawMessage `json:"audio"`
}

type AIAnalysis struct {
	Status         AnalysisStatus                      `gorm:"size:20;default:'pending';index" json:"status"`
	Results        datatypes.JSONType[AnalysisResults] `json:"-"`
	Urgency        Urgency                             `gorm:"size:20" json:"-"`
	Confidence     int                                 `json:"-"`
	Error          string                              `gorm:"type:text" json:"error,omitempty"`
	ModelVersion   string                              `json:"modelVersion,omitempty"`
	ProcessingTime int64                               `json:"processingTime,omitempty"` // milliseconds
}

type VetNotes struct {
	Reviewed         bool       `json:"reviewed"`
	VetName          string     `json:"vetName,omitempty"`
	VetComments      string     `gorm:"type:text" json:"vetComments,omitempty"`
	FollowUpRequired bool       `json:"followUpRequired"`
	ReviewedAt       *time.Time `json:"reviewedAt,omitempty"`
}

type HealthLog struct {
	ID         uint                                `gorm:"primarykey" json:"id"`
	UserID     uint                                `gorm:"not null;index" json:"owner"`
	DogID      uint                                `gorm:"not null;index" json:"dogId"`
	Symptoms   Symptoms                            `gorm:"embedded;embeddedPrefix:symptom_" json:"symptoms"`
	Images     datatypes.JSONSlice[FileDescriptor] `json:"images"`
	Audio      datatypes.JSONSlice[FileDescriptor] `json:"audio"`
	AIAnalysis AIAnalysis                          `gorm:"embedded;embeddedPrefix:ai_" json:"aiAnalysis"`
	VetNotes   VetNotes                            `gorm:"embedded;embeddedPrefix:review_" json:"vetNotes"`
	Status     string                              `gorm:"default:'active'" json:"status"` // active, resolved, monitoring, escalated
	Tags       datatypes.JSONSlice[string]         `json:"tags"`
	CreatedAt  time.Time                           `gorm:"index" json:"createdAt"`
	UpdatedAt  time.Time                           `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt                      `gorm:"index" json:"-"`

	Dog *Dog `gorm:"foreignKey:DogID" json:"dog,omitempty"`
}
