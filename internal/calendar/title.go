package calendar

import "strings"

// ClassMarker prefixes class session titles. LegacyClassMarker is accepted
// when reading events written by older tooling.
const (
	ClassMarker       = "[授業]"
	LegacyClassMarker = "[Class]"
)

// Title renders the event title stored in the calendar. Class sessions read
// "[授業] <class name>"; bookings read "【<role label>】<owner name>".
func Title(kind Kind, roleLabel, name string) string {
	if kind == KindClass {
		return ClassMarker + " " + name
	}
	return "【" + roleLabel + "】" + name
}

// KindFromTitle recovers the kind of an event that carries no typed kind.
func KindFromTitle(title string) Kind {
	if strings.Contains(title, ClassMarker) || strings.Contains(title, LegacyClassMarker) {
		return KindClass
	}
	return KindNormal
}

// ResolveKind returns stored when it is set and falls back to the title marker.
func ResolveKind(stored, title string) Kind {
	switch Kind(stored) {
	case KindClass, KindNormal:
		return Kind(stored)
	default:
		return KindFromTitle(title)
	}
}
