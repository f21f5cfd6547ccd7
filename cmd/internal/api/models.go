package api

import (
	"time"

	"guestlist/cmd/internal/directory"
	"guestlist/cmd/internal/gift"
	"guestlist/cmd/internal/guest"
	"guestlist/cmd/internal/invitation"
)

// ---- requests ----

type invitationCreateRequest struct {
	EventID string `json:"event_id"`
	// UserID is optional; when present it must name the caller.
	UserID  *string `json:"user_id"`
	Message *string `json:"message"`
}

type invitationStatusRequest struct {
	Status string `json:"status"`
}

type guestCreateRequest struct {
	Name   string  `json:"name"`
	UserID *string `json:"user_id"`
	Email  *string `json:"email"`
	Phone  *string `json:"phone"`
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

type rsvpRequest struct {
	Status  string  `json:"status"`
	Message *string `json:"message"`
}

// giftCreateRequest takes amount as a JSON number or decimal string; responses always
// render it as a string with two fractional digits.
type giftCreateRequest struct {
	PaymentMethod string      `json:"payment_method"`
	Currency      string      `json:"currency"`
	Amount        gift.Amount `json:"amount"`
	Note          *string     `json:"note"`
	ReceiptImage  *string     `json:"receipt_image"`
}

type giftPatchRequest struct {
	PaymentMethod *string      `json:"payment_method"`
	Currency      *string      `json:"currency"`
	Amount        *gift.Amount `json:"amount"`
	Note          *string      `json:"note"`
	ReceiptImage  *string      `json:"receipt_image"`
}

// ---- responses ----

type eventResponse struct {
	ID           string  `json:"id"`
	HostID       string  `json:"host_id"`
	Title        string  `json:"title"`
	TemplateSlug *string `json:"template_slug"`
}

type userResponse struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

type invitationResponse struct {
	ID                string             `json:"id"`
	Event             Ref[eventResponse] `json:"event"`
	User              Ref[userResponse]  `json:"user"`
	Message           *string            `json:"message"`
	Status            invitation.Status  `json:"status"`
	RespondedAt       *time.Time         `json:"responded_at"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
	GuestMaterialized *bool              `json:"guest_materialized,omitempty"`
}

type invitationListResponse struct {
	Items    []invitationResponse `json:"items"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}

// publicGuestResponse is what a token holder sees; it never echoes the token.
type publicGuestResponse struct {
	ID        string       `json:"id"`
	EventID   string       `json:"event_id"`
	Name      string       `json:"name"`
	Status    guest.Status `json:"status"`
	Notes     *string      `json:"notes"`
	OpenedAt  *time.Time   `json:"opened_at"`
	ClickedAt *time.Time   `json:"clicked_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// guestResponse is the host view, including the token the host distributes.
type guestResponse struct {
	ID           string       `json:"id"`
	EventID      string       `json:"event_id"`
	UserID       *string      `json:"user_id"`
	Name         string       `json:"name"`
	Email        *string      `json:"email"`
	Phone        *string      `json:"phone"`
	Status       guest.Status `json:"status"`
	InviteToken  string       `json:"invite_token"`
	OpenedAt     *time.Time   `json:"opened_at"`
	ClickedAt    *time.Time   `json:"clicked_at"`
	Notes        *string      `json:"notes"`
	HasGivenGift bool         `json:"has_given_gift"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

type guestListResponse struct {
	Items []guestResponse `json:"items"`
}

type templateResponse struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type renderResponse struct {
	Event    eventResponse       `json:"event"`
	Guest    publicGuestResponse `json:"guest"`
	Template *templateResponse   `json:"template"`
	Assets   directory.AssetSet  `json:"assets"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type giftResponse struct {
	ID            string             `json:"id"`
	GuestID       string             `json:"guest_id"`
	EventID       string             `json:"event_id"`
	PaymentMethod gift.PaymentMethod `json:"payment_method"`
	Currency      gift.Currency      `json:"currency"`
	Amount        gift.Amount        `json:"amount"`
	Note          *string            `json:"note"`
	ReceiptImage  *string            `json:"receipt_image"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

type giftListResponse struct {
	Items []giftResponse `json:"items"`
}

type deletedResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// ---- mapping ----

func toEventResponse(e directory.Event) eventResponse {
	return eventResponse{ID: e.ID, HostID: e.HostID, Title: e.Title, TemplateSlug: e.TemplateSlug}
}

func toUserResponse(u directory.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}
}

func toInvitationResponse(inv invitation.Invitation) invitationResponse {
	return invitationResponse{
		ID:          inv.ID,
		Event:       RefID[eventResponse](inv.EventID),
		User:        RefID[userResponse](inv.UserID),
		Message:     inv.Message,
		Status:      inv.Status,
		RespondedAt: inv.RespondedAt,
		CreatedAt:   inv.CreatedAt,
		UpdatedAt:   inv.UpdatedAt,
	}
}

func toPublicGuestResponse(g guest.Guest) publicGuestResponse {
	return publicGuestResponse{
		ID:        g.ID,
		EventID:   g.EventID,
		Name:      g.Name,
		Status:    g.Status,
		Notes:     g.Notes,
		OpenedAt:  g.OpenedAt,
		ClickedAt: g.ClickedAt,
		UpdatedAt: g.UpdatedAt,
	}
}

func toGuestResponse(g guest.Guest) guestResponse {
	return guestResponse{
		ID:           g.ID,
		EventID:      g.EventID,
		UserID:       g.UserID,
		Name:         g.Name,
		Email:        g.Email,
		Phone:        g.Phone,
		Status:       g.Status,
		InviteToken:  g.InviteToken,
		OpenedAt:     g.OpenedAt,
		ClickedAt:    g.ClickedAt,
		Notes:        g.Notes,
		HasGivenGift: g.HasGivenGift,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
}

func toGiftResponse(g gift.Gift) giftResponse {
	return giftResponse{
		ID:            g.ID,
		GuestID:       g.GuestID,
		EventID:       g.EventID,
		PaymentMethod: g.PaymentMethod,
		Currency:      g.Currency,
		Amount:        g.Amount,
		Note:          g.Note,
		ReceiptImage:  g.ReceiptImage,
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
	}
}
