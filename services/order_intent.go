package services

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// OrderIntentVersion is bumped whenever the encoded layout changes.
const OrderIntentVersion = 1

// Order intent kinds.
const (
	IntentIndividual = "individual"
	IntentGroup      = "group"
)

// Payment metadata keys.
const (
	metaUserID       = "user_id"
	metaKind         = "kind"
	metaGroupOrderID = "group_order_id"
	metaIntentParts  = "intent_parts"
	metaIntentPrefix = "intent_"

	// Stripe caps metadata values at 500 characters and a session at 50 keys.
	metadataValueLimit = 500
	maxIntentParts     = 45
)

// ErrIntentTooLarge means the intent does not fit into payment metadata.
var ErrIntentTooLarge = fmt.Errorf("order intent exceeds payment metadata capacity")

// IntentItem is one purchased line. UnitCents is the discounted unit amount
// charged by the payment processor.
type IntentItem struct {
	ProductID uuid.UUID `json:"p" validate:"required"`
	Quantity  int       `json:"q" validate:"min=1"`
	UnitCents int64     `json:"u" validate:"min=0"`
}

// IntentDelivery is the address captured at checkout.
type IntentDelivery struct {
	Address    string `json:"a" validate:"required,max=255"`
	City       string `json:"c" validate:"required,max=120"`
	PostalCode string `json:"z,omitempty" validate:"max=20"`
	Phone      string `json:"t,omitempty" validate:"max=40"`
}

// OrderIntent carries everything Phase B needs from Phase A through the
// payment processor's string-only metadata.
type OrderIntent struct {
	Version          int             `json:"v" validate:"eq=1"`
	Kind             string          `json:"kind" validate:"oneof=individual group"`
	UserID           uuid.UUID       `json:"uid" validate:"required"`
	GroupOrderID     *uuid.UUID      `json:"gid,omitempty"`
	Items            []IntentItem    `json:"items" validate:"required,min=1,dive"`
	TotalCents       int64           `json:"total" validate:"min=0"`
	CouponCode       string          `json:"coupon,omitempty" validate:"max=64"`
	DiscountPercent  int             `json:"disc,omitempty" validate:"min=0,max=100"`
	PickupOrDelivery string          `json:"fm,omitempty" validate:"omitempty,oneof=pickup delivery"`
	Delivery         *IntentDelivery `json:"dd,omitempty"`
	Notes            string          `json:"notes,omitempty" validate:"max=1000"`
}

var intentValidator = validator.New()

// Validate checks the schema plus the rules that span fields.
func (i *OrderIntent) Validate() error {
	if err := intentValidator.Struct(i); err != nil {
		return err
	}
	switch i.Kind {
	case IntentGroup:
		if i.GroupOrderID == nil || *i.GroupOrderID == uuid.Nil {
			return fmt.Errorf("group intent without group order id")
		}
		if i.CouponCode != "" {
			return fmt.Errorf("group intent carries a coupon")
		}
	case IntentIndividual:
		if i.GroupOrderID != nil {
			return fmt.Errorf("individual intent carries a group order id")
		}
		if i.PickupOrDelivery == "" {
			return fmt.Errorf("individual intent without fulfillment method")
		}
	}
	return nil
}

// IsGroup reports whether the intent joins a group order.
func (i *OrderIntent) IsGroup() bool {
	return i.Kind == IntentGroup
}

// EncodeMetadata serializes the intent once and splits it across metadata
// values. Routing keys are duplicated in plain form for dashboard use.
func (i *OrderIntent) EncodeMetadata() (map[string]string, error) {
	if err := i.Validate(); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(i)
	if err != nil {
		return nil, err
	}

	chunks := splitAtRunes(string(raw), metadataValueLimit)
	parts := len(chunks)
	if parts > maxIntentParts {
		return nil, ErrIntentTooLarge
	}

	meta := map[string]string{
		metaUserID:      i.UserID.String(),
		metaKind:        i.Kind,
		metaIntentParts: strconv.Itoa(parts),
	}
	if i.GroupOrderID != nil {
		meta[metaGroupOrderID] = i.GroupOrderID.String()
	}
	for n, chunk := range chunks {
		meta[metaIntentPrefix+strconv.Itoa(n)] = chunk
	}
	return meta, nil
}

// splitAtRunes cuts s into pieces of at most limit bytes without splitting a
// multi-byte rune, so every piece stays valid UTF-8.
func splitAtRunes(s string, limit int) []string {
	var chunks []string
	for len(s) > limit {
		end := limit
		for end > 0 && !utf8.RuneStart(s[end]) {
			end--
		}
		chunks = append(chunks, s[:end])
		s = s[end:]
	}
	if s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}

// DecodeOrderIntent reassembles and validates an intent from metadata.
func DecodeOrderIntent(meta map[string]string) (*OrderIntent, error) {
	parts, err := strconv.Atoi(meta[metaIntentParts])
	if err != nil || parts < 1 || parts > maxIntentParts {
		return nil, fmt.Errorf("missing or invalid %s", metaIntentParts)
	}

	var b strings.Builder
	for n := 0; n < parts; n++ {
		chunk, ok := meta[metaIntentPrefix+strconv.Itoa(n)]
		if !ok {
			return nil, fmt.Errorf("missing intent chunk %d", n)
		}
		b.WriteString(chunk)
	}

	var intent OrderIntent
	if err := json.Unmarshal([]byte(b.String()), &intent); err != nil {
		return nil, fmt.Errorf("malformed order intent: %w", err)
	}
	if err := intent.Validate(); err != nil {
		return nil, fmt.Errorf("invalid order intent: %w", err)
	}
	if uid := meta[metaUserID]; uid != "" && uid != intent.UserID.String() {
		return nil, fmt.Errorf("order intent user mismatch")
	}
	return &intent, nil
}
