package apiclient

// Paths on the remote backend.
const (
	PathAuthUser           = "/auth/user"
	PathUserList           = "/user/list"
	PathUserUpdate         = "/user/update_user"
	PathUserDelete         = "/user/delete_user"
	PathPermissionUserList = "/permission/user_list"
	PathPermissionUpdate   = "/permission/update"
	PathDropdownGet        = "/dropdown/get"
	PathTrackerView        = "/tracker/view"
	PathTrackerViewDaily   = "/tracker/view_daily"
	PathDashboardFilter    = "/dashboard/filter"
	PathMonthlyTrackerList = "/user_monthly_tracker/list"
	PathQCTemp             = "/qc/temp-qc"

	PathPasswordResetRequest = "/password_reset/request"
	PathPasswordResetVerify  = "/password_reset/verify"
	PathPasswordResetConfirm = "/password_reset/reset"
)

// Audit fields merged into every payload.
const (
	FieldLoggedInUserID = "logged_in_user_id"
	FieldDeviceID       = "device_id"
	FieldDeviceType     = "device_type"
)
