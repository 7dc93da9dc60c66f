package user

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/frahmantamala/billable-dashboard/internal"
	"github.com/frahmantamala/billable-dashboard/internal/apiclient"
)

// Device identifies the client in every write payload.
type Device struct {
	ID   string
	Type string
}

// UpdatePayload is the body sent to /user/update_user.
type UpdatePayload map[string]any

var baseKeys = map[string]bool{
	FieldUserID:                   true,
	apiclient.FieldDeviceID:       true,
	apiclient.FieldDeviceType:     true,
	apiclient.FieldLoggedInUserID: true,
}

// Changed lists the diffed keys, sorted.
func (p UpdatePayload) Changed() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		if !baseKeys[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

type scalarField struct {
	key     string
	get     func(Form) string
	numeric bool
}

var scalarFields = []scalarField{
	{FieldName, func(f Form) string { return f.Name }, false},
	{FieldEmail, func(f Form) string { return f.Email }, false},
	{FieldPhone, func(f Form) string { return f.Phone }, false},
	{FieldRoleID, func(f Form) string { return f.RoleID }, true},
	{FieldDesignationID, func(f Form) string { return f.DesignationID }, true},
	{FieldTeamID, func(f Form) string { return f.TeamID }, true},
	{FieldTenure, func(f Form) string { return f.Tenure }, true},
}

type listField struct {
	key string
	get func(Form) []int64
}

var listFields = []listField{
	{FieldProjectManagerIDs, func(f Form) []int64 { return f.ProjectManagerIDs }},
	{FieldAsstManagerIDs, func(f Form) []int64 { return f.AsstManagerIDs }},
	{FieldQAIDs, func(f Form) []int64 { return f.QAIDs }},
}

// BuildUpdatePayload compares the snapshot with the edited form and keeps
// only what changed, on top of user_id and the device fields. When nothing
// changed the base payload is returned together with ErrNothingChanged.
func BuildUpdatePayload(userID int64, device Device, original, edited Form) (UpdatePayload, error) {
	payload := UpdatePayload{
		FieldUserID:               userID,
		apiclient.FieldDeviceID:   device.ID,
		apiclient.FieldDeviceType: device.Type,
	}

	for _, f := range scalarFields {
		before, after := normalize(f.get(original), f.numeric), normalize(f.get(edited), f.numeric)
		if before == after {
			continue
		}
		if f.numeric {
			payload[f.key] = toNumber(after)
		} else {
			payload[f.key] = after
		}
	}

	for _, f := range listFields {
		after := f.get(edited)
		if sortedJSON(f.get(original)) == sortedJSON(after) {
			continue
		}
		if after == nil {
			after = []int64{}
		}
		payload[f.key] = after
	}

	if pw := edited.Password; strings.TrimSpace(pw) != "" && pw != original.Password {
		payload[FieldPassword] = pw
	}

	if len(payload.Changed()) == 0 {
		return payload, internal.ErrNothingChanged
	}
	return payload, nil
}

func normalize(v string, numeric bool) string {
	v = strings.TrimSpace(v)
	if !numeric || v == "" {
		return v
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return v
}

// toNumber coerces a normalized numeric field. Blank becomes null.
func toNumber(v string) any {
	if v == "" {
		return nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return v
	}
	if n == float64(int64(n)) {
		return int64(n)
	}
	return n
}

func sortedJSON(ids []int64) string {
	sorted := append([]int64{}, ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	b, _ := json.Marshal(sorted)
	return string(b)
}
