package fingerprint

import (
	"strings"
	"testing"
)

func TestRandomCoherence(t *testing.T) {
	t.Parallel()

	for i := 0; i < 50; i++ {
		fp := Random()

		var wantPlatform string
		switch {
		case strings.Contains(fp.UserAgent, "Windows NT"):
			wantPlatform = "Win32"
		case strings.Contains(fp.UserAgent, "Macintosh"):
			wantPlatform = "MacIntel"
		case strings.Contains(fp.UserAgent, "X11; Linux"):
			wantPlatform = "Linux x86_64"
		default:
			t.Fatalf("unrecognized user agent: %s", fp.UserAgent)
		}
		if fp.Platform != wantPlatform {
			t.Errorf("platform %q does not match user agent %q", fp.Platform, fp.UserAgent)
		}

		if fp.Platform == "Win32" && !strings.Contains(fp.Extra.WebGL.Renderer, "D3D11") {
			t.Errorf("Windows identity with non-Direct3D renderer: %s", fp.Extra.WebGL.Renderer)
		}
		if fp.Platform != "Win32" && strings.Contains(fp.Extra.WebGL.Renderer, "D3D11") {
			t.Errorf("%s identity with Direct3D renderer: %s", fp.Platform, fp.Extra.WebGL.Renderer)
		}

		if fp.Locale != "en-US" || !strings.HasPrefix(fp.TimezoneID, "America/") {
			t.Errorf("expected US locale and timezone, got %s %s", fp.Locale, fp.TimezoneID)
		}
		if fp.IsMobile || fp.HasTouch {
			t.Error("desktop identity must not report mobile or touch")
		}
		if fp.Screen.Width < fp.Viewport.Width || fp.Screen.Height < fp.Viewport.Height {
			t.Errorf("screen %dx%d smaller than viewport %dx%d",
				fp.Screen.Width, fp.Screen.Height, fp.Viewport.Width, fp.Viewport.Height)
		}
		if len(fp.Extra.Fonts) == 0 {
			t.Error("fingerprint must carry a font set")
		}
	}
}

func TestStealthScriptEmbedsIdentity(t *testing.T) {
	t.Parallel()

	fp := Random()
	script := StealthScript(fp)

	for _, want := range []string{
		fp.Platform,
		fp.Extra.WebGL.Vendor,
		fp.Extra.WebGL.Renderer,
		fp.Extra.Fonts[0],
		"'webdriver'",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("stealth script missing %q", want)
		}
	}
}

func TestOverlayGuardPreservesConsentWording(t *testing.T) {
	t.Parallel()

	script := OverlayGuardScript()
	for _, want := range []string{"agree", "MutationObserver", "pointerEvents"} {
		if !strings.Contains(script, want) {
			t.Errorf("overlay guard missing %q", want)
		}
	}
}
