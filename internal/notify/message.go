package notify

import (
	"fmt"
	"time"
)

func longDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("Monday, January 2, 2006")
}

func clockTime(label string) string {
	t, err := time.Parse("15:04", label)
	if err != nil {
		return label
	}
	return t.Format("03:04 PM")
}

func confirmationBody(providerName, date, label, clientName string) string {
	return fmt.Sprintf("Appointment Confirmed!\n\n"+
		"Provider: %s\n"+
		"Date: %s\n"+
		"Time: %s\n"+
		"Client: %s\n\n"+
		"Thank you for booking with us!",
		providerName, longDate(date), clockTime(label), clientName)
}

func cancellationBody(providerName string) string {
	return fmt.Sprintf("Appointment Cancelled\n\n"+
		"Your appointment with %s has been cancelled.\n\n"+
		"Please book a new appointment if needed.", providerName)
}
