package service

import (
	"fmt"
	"log"
	"time"

	"github.com/getSweetSpotcl/flexhub/internal/db"
	"github.com/getSweetSpotcl/flexhub/internal/entities"
)

// SenderService composes and sends guest-facing booking notifications.
// It implements BookingNotifier; callers fire it from a goroutine so no
// request or sweep waits on SendGrid or Twilio.
type SenderService struct{}

func NewSenderService() *SenderService {
	return &SenderService{}
}

func (s *SenderService) NotifyBookingStatus(booking *db.Booking, guest *db.Guest) {
	loc, err := time.LoadLocation("America/Santiago")
	if err != nil {
		loc = time.FixedZone("CLT", -4*60*60)
	}

	data := entities.BookingEmailData{
		GuestName:          guest.Name,
		BookingCode:        booking.Code,
		StartTimeFormatted: booking.StartTime.In(loc).Format("02 Jan 2006 15:04 MST"),
		EndTimeFormatted:   booking.EndTime.In(loc).Format("02 Jan 2006 15:04 MST"),
		Status:             statusTranslation(booking.Status),
		CurrentYear:        time.Now().In(loc).Year(),
	}

	subject := fmt.Sprintf("Tu reserva FlexHub está %s - Código: %s", data.Status, data.BookingCode)
	body := fmt.Sprintf(
		"Hola %s,\n\nTu reserva en FlexHub está %s.\n\n"+
			"Detalles de la reserva:\n"+
			"Código de Reserva: %s\n"+
			"Check-in: %s\n"+
			"Check-out: %s\n\n"+
			"Gracias por elegir FlexHub.\n\n"+
			"FlexHub %d. Todos los derechos reservados.",
		data.GuestName, data.Status, data.BookingCode,
		data.StartTimeFormatted, data.EndTimeFormatted, data.CurrentYear,
	)

	if err := SendEmailWithSendGrid(guest.Email, guest.Name, subject, body, ""); err != nil {
		log.Printf("failed to send status email for booking %s: %v", booking.Code, err)
	}

	if guest.Phone == "" {
		return
	}
	sms := fmt.Sprintf("FlexHub: tu reserva %s está %s.\nCheck-in: %s.\nMás detalles en tu correo.",
		data.BookingCode, data.Status,
		booking.StartTime.In(loc).Format("02/01 15:04"),
	)
	if err := SendSMS(guest.Phone, sms); err != nil {
		log.Printf("failed to send status SMS for booking %s: %v", booking.Code, err)
	}
}

func statusTranslation(status db.BookingStatus) string {
	switch status {
	case db.StatusPendingPayment:
		return "pendiente de pago"
	case db.StatusConfirmed:
		return "confirmada"
	case db.StatusCancelled:
		return "cancelada"
	}
	return string(status)
}
