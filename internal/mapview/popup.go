package mapview

import (
	"html/template"
	"strings"
)

var popupTemplate = template.Must(template.New("popup").Parse(
	`<div class="table"><tbody>{{range .}}<tr><th>{{.Heading}}</th><td>{{.Value}}</td></tr>{{end}}</tbody></div>`,
))

type popupRow struct {
	Heading string
	Value   string
}

func renderPopup(rows []popupRow) template.HTML {
	var b strings.Builder
	if err := popupTemplate.Execute(&b, rows); err != nil {
		// rows are plain strings; Execute only fails on writer errors
		return ""
	}
	return template.HTML(b.String())
}

// VehiclePopup renders the vehicle popup table.
func VehiclePopup(v VehicleState) template.HTML {
	return renderPopup([]popupRow{
		{"Speed/Heading", v.Speed.String() + "/" + v.Heading.String()},
		{"State", v.State.String()},
		{"Doors Open", v.DoorsOpen.String()},
		{"Trunk Open", v.TrunkOpen.String()},
		{"Frunk Open", v.FrunkOpen.String()},
		{"Windows Open", v.WindowsOpen.String()},
		{"Plugged In", v.PluggedIn.String()},
		{"Geofence", v.Geofence.String()},
		{"Is User Present", v.IsUserPresent.String()},
		{"Locked", v.Locked.String()},
	})
}

// PersonPopup renders the person popup table.
func PersonPopup(p PersonState) template.HTML {
	return renderPopup([]popupRow{
		{"Name", string(p.FirstName) + "/" + string(p.LastName)},
		{"Battery", p.Location.Battery.String()},
		{"Charge", p.Location.Charge.String()},
		{"Is Driving", p.Location.IsDriving.String()},
		{"In Transit", p.Location.InTransit.String()},
		{"Speed", p.Location.Speed.String()},
	})
}
