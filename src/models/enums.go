package models

// How much of a course a particular requester may see. Levels are strictly
// ordered; a higher level always includes everything a lower level grants.
type AccessLevel int

const (
	AccessNone     AccessLevel = 100
	AccessMetadata AccessLevel = 200
	AccessMaterial AccessLevel = 300
	AccessRO       AccessLevel = 400
	AccessRW       AccessLevel = 500
)

// Or returns the higher of the two levels.
func (l AccessLevel) Or(other AccessLevel) AccessLevel {
	if other > l {
		return other
	}
	return l
}

func (l AccessLevel) String() string {
	switch l {
	case AccessNone:
		return "none"
	case AccessMetadata:
		return "metadata"
	case AccessMaterial:
		return "material"
	case AccessRO:
		return "ro"
	case AccessRW:
		return "rw"
	}
	return "unknown"
}

// Who a course's material is visible to by default, before individual
// subscriptions and easy access tokens are considered.
type Audience int

const (
	AudiencePublic      Audience = 100
	AudienceUsers       Audience = 200
	AudienceStudyCourse Audience = 300
	AudienceSubscribers Audience = 400
)

func (a Audience) String() string {
	switch a {
	case AudiencePublic:
		return "public"
	case AudienceUsers:
		return "users"
	case AudienceStudyCourse:
		return "study course"
	case AudienceSubscribers:
		return "subscribers"
	}
	return "unknown"
}

type NotificationFrequency int

const (
	NotifyImmediately NotificationFrequency = 100
	NotifyTwiceDaily  NotificationFrequency = 200
	NotifyDaily       NotificationFrequency = 300
	NotifyMonFri      NotificationFrequency = 400
	NotifyWeekly      NotificationFrequency = 500
	NotifyNever       NotificationFrequency = 600
)

func (f NotificationFrequency) String() string {
	switch f {
	case NotifyImmediately:
		return "immediately"
	case NotifyTwiceDaily:
		return "twice daily"
	case NotifyDaily:
		return "daily"
	case NotifyMonFri:
		return "monday and friday"
	case NotifyWeekly:
		return "weekly"
	case NotifyNever:
		return "never"
	}
	return "unknown"
}

type BuildFormat int

const (
	BuildFormatEPUB BuildFormat = 100
	BuildFormatHTML BuildFormat = 200
)

// Extension returns the file extension for built artifacts of this format,
// without the leading dot.
func (f BuildFormat) Extension() string {
	switch f {
	case BuildFormatEPUB:
		return "epub"
	case BuildFormatHTML:
		return "html"
	}
	return "bin"
}

func (f BuildFormat) String() string {
	return f.Extension()
}

type BuildStatus int

const (
	BuildWaiting   BuildStatus = 100
	BuildBuilding  BuildStatus = 200
	BuildCompleted BuildStatus = 300
	BuildFailed    BuildStatus = 400
)

func (s BuildStatus) Terminal() bool {
	return s == BuildCompleted || s == BuildFailed
}

func (s BuildStatus) String() string {
	switch s {
	case BuildWaiting:
		return "waiting"
	case BuildBuilding:
		return "building"
	case BuildCompleted:
		return "completed"
	case BuildFailed:
		return "failed"
	}
	return "unknown"
}

// Whether a course is still being transcribed or already complete. Static
// courses are archives; their repositories must not be written to anymore.
type EditingStatus int

const (
	EditingInProgress EditingStatus = 100
	EditingComplete   EditingStatus = 200
	EditingStatic     EditingStatus = 300
)

func (s EditingStatus) String() string {
	switch s {
	case EditingInProgress:
		return "in progress"
	case EditingComplete:
		return "complete"
	case EditingStatic:
		return "static"
	}
	return "unknown"
}
