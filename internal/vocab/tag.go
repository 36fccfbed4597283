package vocab

import "encoding/json"

// TagCategory is the fixed category of a Tag. Custom tags use TagCustom.
type TagCategory string

const (
	TagEmailAddress       TagCategory = "email_address"
	TagPhoneNumber        TagCategory = "phone_number"
	TagPhysicalAddress    TagCategory = "physical_address"
	TagContactInfo        TagCategory = "contact_info"
	TagHealth             TagCategory = "health"
	TagFitness            TagCategory = "fitness"
	TagPaymentInfo        TagCategory = "payment_info"
	TagCreditInfo         TagCategory = "credit_info"
	TagFinancialInfo      TagCategory = "financial_info"
	TagPreciseLocation    TagCategory = "precise_location"
	TagCoarseLocation     TagCategory = "coarse_location"
	TagSensitiveInfo      TagCategory = "sensitive_info"
	TagContacts           TagCategory = "contacts"
	TagMessages           TagCategory = "messages"
	TagPhotoVideo         TagCategory = "photo_video"
	TagAudio              TagCategory = "audio"
	TagGameplayContent    TagCategory = "gameplay_content"
	TagCustomerSupport    TagCategory = "customer_support"
	TagUserContent        TagCategory = "user_content"
	TagBrowsingHistory    TagCategory = "browsing_history"
	TagSearchHistory      TagCategory = "search_history"
	TagUserID             TagCategory = "user_id"
	TagDeviceID           TagCategory = "device_id"
	TagPurchaseHistory    TagCategory = "purchase_history"
	TagProductInteraction TagCategory = "product_interaction"
	TagAdvertisingData    TagCategory = "advertising_data"
	TagUsageData          TagCategory = "usage_data"
	TagCrashData          TagCategory = "crash_data"
	TagPerformanceData    TagCategory = "performance_data"
	TagDiagnosticData     TagCategory = "diagnostic_data"

	TagCustom TagCategory = "custom"
)

var tagCategories = []TagCategory{
	TagEmailAddress, TagPhoneNumber, TagPhysicalAddress, TagContactInfo,
	TagHealth, TagFitness, TagPaymentInfo, TagCreditInfo, TagFinancialInfo,
	TagPreciseLocation, TagCoarseLocation, TagSensitiveInfo, TagContacts,
	TagMessages, TagPhotoVideo, TagAudio, TagGameplayContent,
	TagCustomerSupport, TagUserContent, TagBrowsingHistory, TagSearchHistory,
	TagUserID, TagDeviceID, TagPurchaseHistory, TagProductInteraction,
	TagAdvertisingData, TagUsageData, TagCrashData, TagPerformanceData,
	TagDiagnosticData,
}

var tagTokens = func() map[string]struct{} {
	tokens := make([]string, len(tagCategories))
	for i, c := range tagCategories {
		tokens[i] = string(c)
	}
	return tokenSet(tokens)
}()

// Tags lists the fixed tag vocabulary.
func Tags() []TagCategory {
	out := make([]TagCategory, len(tagCategories))
	copy(out, tagCategories)
	return out
}

// Tag is a canonicalized usage tag. The zero value is not meaningful; build
// tags with NewTag.
type Tag struct {
	category TagCategory
	value    string
}

// NewTag canonicalizes raw. It never fails: unknown values become custom tags.
func NewTag(raw string) Tag {
	v, custom := canonicalize(raw, tagTokens)
	if custom {
		return Tag{category: TagCustom, value: v}
	}
	return Tag{category: TagCategory(v), value: v}
}

// NewTags canonicalizes every entry of raw, keeping order.
func NewTags(raw []string) []Tag {
	if len(raw) == 0 {
		return nil
	}
	out := make([]Tag, len(raw))
	for i, r := range raw {
		out[i] = NewTag(r)
	}
	return out
}

func (t Tag) Category() TagCategory { return t.category }
func (t Tag) Value() string         { return t.value }
func (t Tag) String() string        { return t.value }
func (t Tag) IsCustom() bool        { return t.category == TagCustom }

func (t Tag) MarshalJSON() ([]byte, error) { return json.Marshal(t.value) }

func (t *Tag) UnmarshalJSON(data []byte) error {
	s, err := unmarshalString(data, "tag")
	if err != nil {
		return err
	}
	*t = NewTag(s)
	return nil
}
