package core

const (
	SuccessUpdated = "updated"
	SuccessDeleted = "deleted"
)

// Banner is the status shown above a page. Either part may be empty.
type Banner struct {
	Success string
	Error   string
}

func (b Banner) IsEmpty() bool {
	return b.Success == "" && b.Error == ""
}

// BannerFor returns the success banner of a completed action.
func BannerFor(action string) Banner {
	switch action {
	case ActionRegister:
		return Banner{Success: "Registration successful!"}
	case ActionUpdate, SuccessUpdated:
		return Banner{Success: "Registration updated successfully!"}
	case ActionDelete, SuccessDeleted:
		return Banner{Success: "Registration deleted successfully!"}
	}
	return Banner{}
}

func ErrorBanner(err error) Banner {
	return Banner{Error: UserMessage(err)}
}

// BannerFromQuery rebuilds the banner carried by a redirect. Unknown success values are
// ignored. The error text is shown verbatim (templates escape it).
func BannerFromQuery(success, errorText string) Banner {
	banner := Banner{}
	if success == SuccessUpdated || success == SuccessDeleted {
		banner = BannerFor(success)
	}
	banner.Error = errorText
	return banner
}
