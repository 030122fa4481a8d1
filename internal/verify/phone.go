package verify

import (
	"context"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/sells-group/enrich-cli/internal/model"
)

// DefaultRegion is used for numbers without a country prefix.
const DefaultRegion = "US"

// PhoneVerifier validates numbers offline against libphonenumber metadata.
type PhoneVerifier struct {
	defaultRegion string
	lang          string
}

// NewPhoneVerifier creates a PhoneVerifier. An empty region uses DefaultRegion.
func NewPhoneVerifier(defaultRegion string) *PhoneVerifier {
	if defaultRegion == "" {
		defaultRegion = DefaultRegion
	}
	return &PhoneVerifier{
		defaultRegion: strings.ToUpper(defaultRegion),
		lang:          "en",
	}
}

// Verify classifies phone. Unparseable or invalid numbers are a judgement,
// not an error.
func (v *PhoneVerifier) Verify(ctx context.Context, phone string) (*model.PhoneVerificationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := &model.PhoneVerificationResult{}

	num, err := phonenumbers.Parse(phone, v.defaultRegion)
	if err != nil {
		res.Reason = "unparseable number: " + err.Error()
		return res, nil
	}
	res.Country = phonenumbers.GetRegionCodeForNumber(num)
	res.FormattedInternational = phonenumbers.Format(num, phonenumbers.INTERNATIONAL)

	if !phonenumbers.IsValidNumber(num) {
		res.Score = 10
		res.Reason = "number is not valid for its region"
		return res, nil
	}
	res.IsValid = true

	var score int
	switch phonenumbers.GetNumberType(num) {
	case phonenumbers.MOBILE:
		res.IsMobile = true
		score = 95
	case phonenumbers.FIXED_LINE:
		res.IsLandline = true
		score = 85
	case phonenumbers.FIXED_LINE_OR_MOBILE:
		res.IsMobile = true
		res.IsLandline = true
		score = 80
	case phonenumbers.VOIP:
		res.IsVoIP = true
		score = 60
		res.Reason = "voip number"
	default:
		score = 70
	}

	if region, err := phonenumbers.GetGeocodingForNumber(num, v.lang); err == nil {
		res.Region = region
	}
	if carrier, err := phonenumbers.GetCarrierForNumber(num, v.lang); err == nil {
		res.CarrierName = carrier
	}
	res.Score = score
	return res, nil
}
