package checkout

import (
	"fmt"
	"time"

	"github.com/example/plantshop-checkout/internal/cart"
	"github.com/example/plantshop-checkout/internal/coupon"
	"github.com/example/plantshop-checkout/internal/session"
)

type ShippingOption string

const (
	ShippingStandard ShippingOption = "standard"
	ShippingExpress  ShippingOption = "express"
)

// ShippingInfo is the shipping form, captured once per session and
// persisted upstream so the next checkout can prefill it.
type ShippingInfo struct {
	FullName       string         `json:"fullName"`
	Address        string         `json:"address"`
	City           string         `json:"city"`
	PostalCode     string         `json:"postalCode"`
	ShippingOption ShippingOption `json:"shippingOption"`
}

// Validate checks the required fields before any network call.
func (s ShippingInfo) Validate() error {
	required := []struct{ name, value string }{
		{"fullName", s.FullName},
		{"address", s.Address},
		{"city", s.City},
		{"postalCode", s.PostalCode},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("%w: %s is required", ErrCannotProceed, f.name)
		}
	}
	if s.ShippingOption != ShippingStandard && s.ShippingOption != ShippingExpress {
		return fmt.Errorf("%w: unknown shipping option %q", ErrCannotProceed, s.ShippingOption)
	}
	return nil
}

type PaymentMethod string

const (
	PaymentCard       PaymentMethod = "card"
	PaymentUPI        PaymentMethod = "upi"
	PaymentNetBanking PaymentMethod = "netbanking"
	PaymentCOD        PaymentMethod = "cod"
	PaymentWallet     PaymentMethod = "wallet"
)

// PaymentRecord is transient payment data. No gateway integration is in
// scope: card, netbanking and wallet payments are considered paid on
// form submission, UPI once the user affirms the QR flow, and cash on
// delivery on confirmation. The record is sent upstream only as an
// audit entry.
type PaymentRecord struct {
	Method       PaymentMethod `json:"paymentMethod"`
	CardNumber   string        `json:"cardNumber,omitempty"`
	ExpiryDate   string        `json:"expiryDate,omitempty"`
	CVV          string        `json:"cvv,omitempty"`
	BankName     string        `json:"bankName,omitempty"`
	UpiID        string        `json:"upiId,omitempty"`
	WalletType   string        `json:"walletType,omitempty"`
	WalletMobile string        `json:"walletMobile,omitempty"`
	IsPaid       bool          `json:"isPaid"`
}

// Validate checks the method-specific required fields and that payment
// has been affirmed.
func (p PaymentRecord) Validate() error {
	switch p.Method {
	case PaymentCard:
		if p.CardNumber == "" || p.ExpiryDate == "" || p.CVV == "" {
			return fmt.Errorf("%w: card number, expiry and cvv are required", ErrCannotProceed)
		}
	case PaymentUPI:
		if p.UpiID == "" {
			return fmt.Errorf("%w: upi id is required", ErrCannotProceed)
		}
	case PaymentNetBanking:
		if p.BankName == "" {
			return fmt.Errorf("%w: bank is required", ErrCannotProceed)
		}
	case PaymentWallet:
		if p.WalletType == "" || p.WalletMobile == "" {
			return fmt.Errorf("%w: wallet and mobile number are required", ErrCannotProceed)
		}
	case PaymentCOD:
		// nothing to collect
	default:
		return fmt.Errorf("%w: unknown payment method %q", ErrCannotProceed, p.Method)
	}
	if !p.IsPaid {
		return fmt.Errorf("%w: payment not confirmed", ErrCannotProceed)
	}
	return nil
}

// Session is one bounded checkout flow: the cart snapshot taken at the
// order step plus everything the user has entered so far. Back
// navigation keeps all of it.
type Session struct {
	ID        string          `json:"id"`
	User      session.Context `json:"user"`
	Step      Step            `json:"step"`
	Items     []cart.LineItem `json:"items"`
	Coupon    *coupon.Applied `json:"coupon,omitempty"`
	Shipping  *ShippingInfo   `json:"shipping,omitempty"`
	Payment   *PaymentRecord  `json:"payment,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Subtotal sums unit price times quantity over the session's item
// snapshot. Coupon application and the projected summary both use this
// figure, so the validated subtotal and the displayed one always agree.
func (s *Session) Subtotal() float64 {
	var total float64
	for _, item := range s.Items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return total
}

// Discount returns the applied discount, zero when no coupon is in
// effect.
func (s *Session) Discount() float64 {
	if s.Coupon == nil {
		return 0
	}
	return s.Coupon.Discount
}

// ShippingFeeOption returns the selected shipping option, standard
// until the shipping step has been submitted.
func (s *Session) ShippingFeeOption() ShippingOption {
	if s.Shipping == nil {
		return ShippingStandard
	}
	return s.Shipping.ShippingOption
}

// clone returns a deep copy so stored sessions cannot alias live ones.
func (s *Session) clone() *Session {
	out := *s
	out.Items = make([]cart.LineItem, len(s.Items))
	copy(out.Items, s.Items)
	if s.Coupon != nil {
		c := *s.Coupon
		out.Coupon = &c
	}
	if s.Shipping != nil {
		sh := *s.Shipping
		out.Shipping = &sh
	}
	if s.Payment != nil {
		p := *s.Payment
		out.Payment = &p
	}
	return &out
}
