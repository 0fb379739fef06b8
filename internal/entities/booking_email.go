package entities

type BookingEmailData struct {
	GuestName          string
	BookingCode        string
	StartTimeFormatted string
	EndTimeFormatted   string
	Status             string
	CurrentYear        int
}
