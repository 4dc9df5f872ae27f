package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestItemComplete(t *testing.T) {
	tests := []struct {
		name      string
		item      WizardItem
		photos    int
		wantValid bool
	}{
		{"完整物品", WizardItem{Name: "Desk Lamp", Description: "Working lamp", Condition: ConditionGood, DefectNotes: "None"}, 1, true},
		{"缺少图片", WizardItem{Name: "Desk Lamp", Description: "Working lamp", Condition: ConditionGood, DefectNotes: "None"}, 0, false},
		{"名称只有空白", WizardItem{Name: "   ", Description: "Working lamp", Condition: ConditionGood, DefectNotes: "None"}, 1, false},
		{"描述为空", WizardItem{Name: "Lamp", Description: "", Condition: ConditionGood, DefectNotes: "None"}, 1, false},
		{"瑕疵说明为空", WizardItem{Name: "Lamp", Description: "Lamp", Condition: ConditionGood, DefectNotes: "\t"}, 1, false},
		{"成色未选", WizardItem{Name: "Lamp", Description: "Lamp", DefectNotes: "None"}, 1, false},
		{"成色非法", WizardItem{Name: "Lamp", Description: "Lamp", Condition: "mint", DefectNotes: "None"}, 1, false},
		{"多张图片", WizardItem{Name: "Lamp", Description: "Lamp", Condition: ConditionLikeNew, DefectNotes: "Scratch"}, MinPhotosRecommended, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := tt.item
			item.Photos = make([]ItemPhoto, tt.photos)
			assert.Equal(t, tt.wantValid, item.RefreshValidity())
			assert.Equal(t, tt.wantValid, item.IsValid)
		})
	}
}

func TestMapConditionForAPI(t *testing.T) {
	assert.Equal(t, "NEW", MapConditionForAPI(ConditionLikeNew))
	assert.Equal(t, "EXCELLENT", MapConditionForAPI(ConditionExcellent))
	assert.Equal(t, "GOOD", MapConditionForAPI(ConditionGood))
	assert.Equal(t, "FAIR", MapConditionForAPI(ConditionFair))
	assert.Equal(t, "POOR", MapConditionForAPI(ConditionPoor))
	assert.Equal(t, "GOOD", MapConditionForAPI("vintage"))
	assert.Equal(t, "GOOD", MapConditionForAPI(""))
}

func TestParseEstimateSource(t *testing.T) {
	assert.Equal(t, EstimateSourcePrimaryAI, ParseEstimateSource(""))
	assert.Equal(t, EstimateSourcePrimaryAI, ParseEstimateSource("api_estimate"))
	assert.Equal(t, EstimateSourceSecondaryAI, ParseEstimateSource("secondary_ai"))
	assert.Equal(t, EstimateSourceMarketplace, ParseEstimateSource("ebay_fallback"))
	assert.Equal(t, EstimateSourceBasic, ParseEstimateSource("basic"))
}

func TestNormalizeConfidence(t *testing.T) {
	assert.Equal(t, ConfidenceHigh, NormalizeConfidence("HIGH"))
	assert.Equal(t, ConfidenceLow, NormalizeConfidence("Low"))
	assert.Equal(t, ConfidenceMedium, NormalizeConfidence("medium"))
	assert.Equal(t, ConfidenceMedium, NormalizeConfidence(""))
}

func TestWizardSession_Step1Valid(t *testing.T) {
	s := &WizardSession{}
	assert.False(t, s.Step1Valid(), "没有物品时不可通过")

	s.Items = []WizardItem{{IsValid: true}, {IsValid: false}}
	assert.False(t, s.Step1Valid())

	s.Items[1].IsValid = true
	assert.True(t, s.Step1Valid())
}

func TestWizardSession_Step2Valid(t *testing.T) {
	date := time.Now().Add(48 * time.Hour)
	valid := func() *WizardSession {
		return &WizardSession{
			FullName:        "Jane Doe",
			Email:           "jane@example.com",
			PhoneDisplay:    "(312) 555-0100",
			PickupAddress:   "1 Main St",
			PickupDate:      &date,
			ConsentAccepted: true,
		}
	}

	assert.True(t, valid().Step2Valid())

	s := valid()
	s.Email = "jane.example.com"
	assert.False(t, s.Step2Valid(), "邮箱必须包含 @")

	s = valid()
	s.PickupDate = nil
	assert.False(t, s.Step2Valid())

	s = valid()
	s.ConsentAccepted = false
	assert.False(t, s.Step2Valid())

	s = valid()
	s.PickupAddress = "  "
	assert.False(t, s.Step2Valid())
}

func TestAppSession_Lifecycle(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &AppSession{SessionKey: "k"}
	assert.False(t, s.IsAuthenticated())

	s.Init("a", "r", SessionIdentity{UserID: 7, Role: "Admin"}, time.Hour, now)
	assert.True(t, s.IsAdmin())
	assert.False(t, s.Expired(now.Add(30*time.Minute)))
	assert.True(t, s.Expired(now.Add(time.Hour)))

	s.Teardown()
	assert.False(t, s.IsAuthenticated())
	assert.False(t, s.IsAdmin())
	assert.Empty(t, s.RefreshToken)
}
