package importgraph

import "testing"

func TestIsPageObjectFile(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"pages/login_page.py", true},
		{"pages/confirm_dialog.py", true},
		{"pages/upload_modal.py", true},
		{"pages/footer_section.py", true},
		{"steps/checkout_steps.py", true},
		{"flows/login_step.py", true},
		{"widgets/component_grid.py", true},
		{"layout/header_nav.py", true},
		{"layout/sidebar_menu.py", true},
		{"flows/steps/pay.py", true},
		{`flows\steps\pay.py`, true},

		{"common/utility.py", false},
		{"common/wait_helper.py", false},
		{"pages/base.py", false},
		{"common/str_util.py", false},
		{"pages/__init__.py", false},
		{"infra/driver.py", false},
		{"infra/api_client.py", false},

		// Unclassified files are not followed.
		{"misc/data.py", false},
		{"tests/test_login.py", false},
	}
	for _, c := range cases {
		if got := IsPageObjectFile(c.path); got != c.want {
			t.Errorf("IsPageObjectFile(%q): got %v, want %v", c.path, got, c.want)
		}
	}
}

func TestIsPageObjectFile_PositiveBeatsNegative(t *testing.T) {
	// A page file under a helper-ish name segment still counts: positive
	// indicators are checked first.
	if !IsPageObjectFile("helpers/search_page.py") {
		t.Error("page.py suffix should win over directory spelling")
	}
}
