// Package timezone pins wall-clock arithmetic to the application timezone configured
// through APP_TIMEZONE (an IANA name such as "Europe/London"). Booking dates are calendar
// dates; check-in instants are derived from them with At.
package timezone
