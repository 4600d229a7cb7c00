// Package views renders the HTML fragments the upload form swaps in with
// HTMX: the validity alert under the file input, the hidden parser_options
// field submitted with the form, and error alerts.
//
// Components are written in views.templ; run `templ generate` after editing it.
package views

import (
	"strconv"

	"github.com/JonMunkholm/gwasupload/internal/core"
)

// OptionsFieldName is the form field carrying the serialized parser options.
const OptionsFieldName = "parser_options"

var stateClass = map[core.State]string{
	core.StateIdle:                  "alert-secondary",
	core.StateAwaitingParserOptions: "alert-info",
	core.StateValidating:            "alert-info",
	core.StateAccepted:              "alert-success",
	core.StateRejected:              "alert-danger",
}

var stateText = map[core.State]string{
	core.StateIdle:                  "Select a summary statistics file.",
	core.StateAwaitingParserOptions: "Choose the columns of your file.",
	core.StateValidating:            "Checking the first lines of your file...",
	core.StateAccepted:              "Your file looks good and can be uploaded.",
}

// optionsValue is the companion field value: the options JSON while the
// file is accepted, empty otherwise.
func optionsValue(v core.Validity) string {
	if !v.Valid() {
		return ""
	}
	return string(v.Options)
}

func alertText(v core.Validity) string {
	if v.Message != "" {
		return v.Message
	}
	return stateText[v.State]
}

func rowsChecked(v core.Validity) string {
	return strconv.Itoa(v.Summary.DataRows) + " data rows checked"
}
