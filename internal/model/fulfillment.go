package model

import "strings"

// LabelAttachment is the shipping label file uploaded by staff.
type LabelAttachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ShippingLabelRequest is the staff input for issuing a shipping label.
type ShippingLabelRequest struct {
	Attachment     *LabelAttachment
	TrackingNumber *string
	Message        *string
}

// Validate checks that a usable attachment is present and trims the free text.
func (r *ShippingLabelRequest) Validate() error {
	if r == nil || r.Attachment == nil {
		return ErrAttachmentRequired
	}
	a := r.Attachment
	if strings.TrimSpace(a.Filename) == "" || strings.TrimSpace(a.ContentType) == "" || len(a.Content) == 0 {
		return ErrAttachmentRequired
	}
	r.TrackingNumber = trimmedOrNil(r.TrackingNumber)
	r.Message = trimmedOrNil(r.Message)
	return nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
