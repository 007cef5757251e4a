package checker

// Status is the comparison outcome carried by a successful Result
type Status int

const (
	StatusUnknown Status = iota
	StatusOutdated
	StatusCurrent
	StatusNewer
)

func (s Status) String() string {
	switch s {
	case StatusOutdated:
		return "outdated"
	case StatusCurrent:
		return "current"
	case StatusNewer:
		return "newer"
	default:
		return "unknown"
	}
}

// Result is the outcome of a single update check.
//
// When Success is true exactly one of IsOutdated, IsCurrent and IsNewer is
// set. When it is false only Error (and Err) are meaningful. Empty strings
// mean the registry did not provide the field.
type Result struct {
	Success bool   `json:"success" yaml:"success"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
	Addon   string `json:"addon" yaml:"addon"`

	IsOutdated bool `json:"isOutdated" yaml:"isOutdated"`
	IsCurrent  bool `json:"isCurrent,omitempty" yaml:"isCurrent,omitempty"`
	IsNewer    bool `json:"isNewer,omitempty" yaml:"isNewer,omitempty"`

	Current string `json:"current,omitempty" yaml:"current,omitempty"`
	Latest  string `json:"latest,omitempty" yaml:"latest,omitempty"`

	ReleaseDate string `json:"releaseDate,omitempty" yaml:"releaseDate,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty" yaml:"downloadUrl,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Urgent      bool   `json:"urgent" yaml:"urgent"`
	Breaking    bool   `json:"breaking" yaml:"breaking"`
	External    bool   `json:"external" yaml:"external"`
	Author      string `json:"author,omitempty" yaml:"author,omitempty"`
	Homepage    string `json:"homepage,omitempty" yaml:"homepage,omitempty"`
	Changelog   string `json:"changelog,omitempty" yaml:"changelog,omitempty"`

	Repository     string `json:"repository,omitempty" yaml:"repository,omitempty"`
	SupportContact string `json:"supportContact,omitempty" yaml:"supportContact,omitempty"`
	LastUpdated    string `json:"lastUpdated,omitempty" yaml:"lastUpdated,omitempty"`

	// Err is the underlying error of a failed check, kept for errors.Is/As
	Err error `json:"-" yaml:"-"`
}

// Status maps the ordering flags to a single value. Failed checks and
// results violating the one-flag invariant report StatusUnknown.
func (r Result) Status() Status {
	if !r.Success {
		return StatusUnknown
	}
	switch {
	case r.IsOutdated && !r.IsCurrent && !r.IsNewer:
		return StatusOutdated
	case r.IsCurrent && !r.IsOutdated && !r.IsNewer:
		return StatusCurrent
	case r.IsNewer && !r.IsOutdated && !r.IsCurrent:
		return StatusNewer
	default:
		return StatusUnknown
	}
}

// failure builds the result of a check that could not determine a status
func failure(addon, current string, err error) Result {
	return Result{
		Success:    false,
		Error:      err.Error(),
		Addon:      addon,
		IsOutdated: false,
		Current:    current,
		Err:        err,
	}
}
