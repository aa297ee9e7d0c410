// Package fingerprint builds the browser identity a stealth session
// presents to the search site. Every value handed to the browser
// context and every value injected by script comes from one Profile,
// so the platform, fonts, WebGL strings and user agent always describe
// the same imaginary machine. Mixed signals (a Windows UA with Mac
// fonts) are what bot checks key on.
package fingerprint

import (
	"fmt"
	"math/rand"
	"strings"
)

type Viewport struct {
	Width  int
	Height int
}

type Screen struct {
	Width  int
	Height int
}

type WebGLConfig struct {
	Vendor   string
	Renderer string
}

type AudioConfig struct {
	SampleRate   int
	ChannelCount int
	BufferSize   int
}

// Fingerprint is one coherent browser identity.
type Fingerprint struct {
	UserAgent         string
	Platform          string
	Languages         []string
	Viewport          Viewport
	Locale            string
	TimezoneID        string
	ColorScheme       string
	DeviceScaleFactor float64
	IsMobile          bool
	HasTouch          bool
	Screen            Screen
	Extra             ExtraConfig
}

type ExtraConfig struct {
	Fonts               []string
	Audio               AudioConfig
	WebGL               WebGLConfig
	HardwareConcurrency int
	DeviceMemory        int
}

// profile groups the values that must agree with each other for one
// operating system.
type profile struct {
	userAgents   []string
	platform     string
	webGL        []WebGLConfig
	fonts        []string
	scaleFactors []float64
}

var profiles = []profile{
	{
		userAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		},
		platform: "Win32",
		webGL: []WebGLConfig{
			{"Google Inc. (NVIDIA)", "ANGLE (NVIDIA, NVIDIA GeForce RTX 3060 Direct3D11 vs_5_0 ps_5_0, D3D11)"},
			{"Google Inc. (Intel)", "ANGLE (Intel, Intel(R) UHD Graphics 630 Direct3D11 vs_5_0 ps_5_0, D3D11)"},
			{"Google Inc. (AMD)", "ANGLE (AMD, AMD Radeon RX 6700 XT Direct3D11 vs_5_0 ps_5_0, D3D11)"},
		},
		fonts:        []string{"Arial", "Calibri", "Cambria", "Consolas", "Segoe UI", "Tahoma", "Times New Roman", "Verdana"},
		scaleFactors: []float64{1, 1.25, 1.5},
	},
	{
		userAgents: []string{
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		},
		platform: "MacIntel",
		webGL: []WebGLConfig{
			{"Google Inc. (Apple)", "ANGLE (Apple, Apple M1, OpenGL 4.1)"},
			{"Google Inc. (Apple)", "ANGLE (Apple, Apple M2, OpenGL 4.1)"},
			{"Google Inc. (Intel)", "ANGLE (Intel, Intel(R) Iris(TM) Plus Graphics 645, OpenGL 4.1)"},
		},
		fonts:        []string{"Arial", "Geneva", "Helvetica", "Helvetica Neue", "Lucida Grande", "Monaco", "Times"},
		scaleFactors: []float64{1, 2},
	},
	{
		userAgents: []string{
			"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		platform: "Linux x86_64",
		webGL: []WebGLConfig{
			{"Google Inc. (Intel)", "ANGLE (Intel, Mesa Intel(R) UHD Graphics 630 (CFL GT2), OpenGL 4.6)"},
			{"Google Inc. (Mesa)", "ANGLE (Mesa, llvmpipe (LLVM 15.0.7 256 bits), OpenGL 4.5)"},
		},
		fonts:        []string{"Arial", "DejaVu Sans", "FreeSans", "Liberation Sans", "Noto Sans", "Ubuntu"},
		scaleFactors: []float64{1},
	},
}

// The search targets are US people records reached through US exits,
// so the clock and locale always look American.
var usTimezones = []string{
	"America/New_York",
	"America/Chicago",
	"America/Denver",
	"America/Los_Angeles",
	"America/Phoenix",
}

var viewports = []Viewport{
	{1920, 1080},
	{1366, 768},
	{1536, 864},
	{1440, 900},
	{1680, 1050},
	{2560, 1440},
}

var audioConfigs = []AudioConfig{
	{44100, 2, 4096},
	{48000, 2, 8192},
	{44100, 1, 2048},
}

// Random produces a fresh internally consistent fingerprint.
func Random() Fingerprint {
	p := profiles[rand.Intn(len(profiles))]
	vp := viewports[rand.Intn(len(viewports))]

	colorScheme := "light"
	if rand.Intn(2) == 0 {
		colorScheme = "dark"
	}

	return Fingerprint{
		UserAgent:         p.userAgents[rand.Intn(len(p.userAgents))],
		Platform:          p.platform,
		Languages:         []string{"en-US", "en"},
		Viewport:          vp,
		Locale:            "en-US",
		TimezoneID:        usTimezones[rand.Intn(len(usTimezones))],
		ColorScheme:       colorScheme,
		DeviceScaleFactor: p.scaleFactors[rand.Intn(len(p.scaleFactors))],
		IsMobile:          false,
		HasTouch:          false,
		Screen: Screen{
			Width:  vp.Width + rand.Intn(200),
			Height: vp.Height + rand.Intn(200) + 100,
		},
		Extra: ExtraConfig{
			Fonts:               p.fonts,
			Audio:               audioConfigs[rand.Intn(len(audioConfigs))],
			WebGL:               p.webGL[rand.Intn(len(p.webGL))],
			HardwareConcurrency: []int{4, 8, 12, 16}[rand.Intn(4)],
			DeviceMemory:        []int{8, 16, 32}[rand.Intn(3)],
		},
	}
}

// StealthScript renders the init script that aligns the page's
// JavaScript environment with the fingerprint and erases automation
// markers. It runs in every frame before any site script.
func StealthScript(fp Fingerprint) string {
	audioNoise := 0.0001 + rand.Float64()*0.0004

	var fontsQuoted []string
	for _, f := range fp.Extra.Fonts {
		fontsQuoted = append(fontsQuoted, fmt.Sprintf("'%s'", f))
	}
	fontsJS := strings.Join(fontsQuoted, ", ")

	var langsQuoted []string
	for _, l := range fp.Languages {
		langsQuoted = append(langsQuoted, fmt.Sprintf("'%s'", l))
	}
	langsJS := strings.Join(langsQuoted, ", ")

	return fmt.Sprintf(`
    (function() {
        'use strict';

        // Erase webdriver traces
        Object.defineProperty(navigator, 'webdriver', {
            get: () => undefined,
            configurable: true
        });
        delete navigator.__webdriver_evaluate;
        delete navigator.__driver_evaluate;
        delete navigator.__webdriver_script_function;
        delete navigator.__webdriver_script_func;
        delete navigator.__webdriver_script_fn;
        delete navigator.__fxdriver_evaluate;
        delete navigator.__driver_unwrapped;
        delete navigator.__webdriver_unwrapped;
        delete window.cdc_adoQpoasnfa76pfcZLmcfl_Array;
        delete window.cdc_adoQpoasnfa76pfcZLmcfl_Promise;
        delete window.cdc_adoQpoasnfa76pfcZLmcfl_Symbol;

        // Platform and languages must agree with the user agent
        Object.defineProperty(navigator, 'platform', {
            get: () => '%s',
            configurable: true
        });
        Object.defineProperty(navigator, 'languages', {
            get: () => [%s],
            configurable: true
        });

        // Hardware identity
        Object.defineProperty(navigator, 'hardwareConcurrency', {
            get: () => %d,
            configurable: true
        });
        Object.defineProperty(navigator, 'deviceMemory', {
            get: () => %d,
            configurable: true
        });

        // Plugins that headless Chromium is missing
        Object.defineProperty(navigator, 'plugins', {
            get: () => ({
                length: 3,
                0: { name: 'Chrome PDF Plugin', description: 'Portable Document Format', filename: 'internal-pdf-viewer' },
                1: { name: 'Chrome PDF Viewer', description: '', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai' },
                2: { name: 'Native Client', description: '', filename: 'internal-nacl-plugin' }
            }),
        });

        // Chrome runtime object absent under automation
        window.chrome = window.chrome || {
            runtime: { onConnect: undefined, onMessage: undefined },
            app: { isInstalled: false }
        };

        // WebGL vendor and renderer
        const getParameter = WebGLRenderingContext.prototype.getParameter;
        WebGLRenderingContext.prototype.getParameter = function(parameter) {
            if (parameter === 37445) return '%s';
            if (parameter === 37446) return '%s';
            return getParameter.apply(this, arguments);
        };
        if (window.WebGL2RenderingContext) {
            const getParameter2 = WebGL2RenderingContext.prototype.getParameter;
            WebGL2RenderingContext.prototype.getParameter = function(parameter) {
                if (parameter === 37445) return '%s';
                if (parameter === 37446) return '%s';
                return getParameter2.apply(this, arguments);
            };
        }

        // Canvas noise
        const shift = {
            r: Math.floor(Math.random() * 10) - 5,
            g: Math.floor(Math.random() * 10) - 5,
            b: Math.floor(Math.random() * 10) - 5,
            a: Math.floor(Math.random() * 10) - 5
        };
        const originalToDataURL = HTMLCanvasElement.prototype.toDataURL;
        HTMLCanvasElement.prototype.toDataURL = function(type) {
            const context = this.getContext('2d');
            if (context) {
                const imageData = context.getImageData(0, 0, this.width, this.height);
                for (let i = 0; i < imageData.data.length; i += 4) {
                    imageData.data[i] = imageData.data[i] + shift.r;
                    imageData.data[i + 1] = imageData.data[i + 1] + shift.g;
                    imageData.data[i + 2] = imageData.data[i + 2] + shift.b;
                    imageData.data[i + 3] = imageData.data[i + 3] + shift.a;
                }
                context.putImageData(imageData, 0, 0);
            }
            return originalToDataURL.apply(this, arguments);
        };

        // Audio fingerprint noise
        const AudioContext = window.AudioContext || window.webkitAudioContext;
        if (AudioContext) {
            const OriginalAnalyser = AudioContext.prototype.createAnalyser;
            AudioContext.prototype.createAnalyser = function() {
                const analyser = OriginalAnalyser.call(this);
                const originalGetFloatFrequencyData = analyser.getFloatFrequencyData;
                analyser.getFloatFrequencyData = function(array) {
                    originalGetFloatFrequencyData.call(this, array);
                    for (let i = 0; i < array.length; i++) {
                        array[i] += %f * (Math.random() - 0.5);
                    }
                };
                return analyser;
            };
        }

        // Font set matching the platform
        const availableFonts = [%s];
        Object.defineProperty(document, 'fonts', {
            get: () => ({
                check: (font) => availableFonts.some(f => font.includes(f)),
                ready: Promise.resolve(),
                size: availableFonts.length
            })
        });

        // WebRTC leaks the real address around the proxy
        const originalRTCPeerConnection = window.RTCPeerConnection;
        if (originalRTCPeerConnection) {
            window.RTCPeerConnection = function(config) {
                if (config && config.iceServers) {
                    config.iceServers = config.iceServers.filter(server => {
                        return !server.urls || !server.urls.toString().includes('stun');
                    });
                }
                return new originalRTCPeerConnection(config);
            };
        }

        // Battery API
        if (navigator.getBattery) {
            const originalGetBattery = navigator.getBattery;
            navigator.getBattery = function() {
                return originalGetBattery.call(this).then(battery => {
                    Object.defineProperties(battery, {
                        charging: { get: () => Math.random() > 0.5 },
                        level: { get: () => 0.5 + Math.random() * 0.5 },
                        chargingTime: { get: () => Infinity },
                        dischargingTime: { get: () => Math.random() * 10000 + 5000 }
                    });
                    return battery;
                });
            };
        }
    })();
    `,
		fp.Platform,
		langsJS,
		fp.Extra.HardwareConcurrency,
		fp.Extra.DeviceMemory,
		fp.Extra.WebGL.Vendor, fp.Extra.WebGL.Renderer,
		fp.Extra.WebGL.Vendor, fp.Extra.WebGL.Renderer,
		audioNoise,
		fontsJS,
	)
}

// OverlayGuardScript renders the init script that strips ad and
// subscription overlays as they appear while leaving anything carrying
// consent or search wording alone. The consent dialog must stay
// clickable or the session never gets past the landing page.
func OverlayGuardScript() string {
	return `
    (function() {
        'use strict';

        const keepWords = ['agree', 'terms', 'search'];
        const overlaySelectors = [
            '[class*="subscribe"]', '[class*="newsletter"]',
            '.subscription-popup', '.newsletter-popup',
            '[class*="advert"]', '[id*="advert"]',
            '[class*="tracking"]', '[class*="analytics"]', '[class*="pixel"]'
        ];

        const keep = (el) => {
            const text = (el.textContent || '').toLowerCase();
            return keepWords.some(w => text.includes(w));
        };

        const sweep = () => {
            overlaySelectors.forEach(selector => {
                try {
                    document.querySelectorAll(selector).forEach(el => {
                        if (!keep(el)) {
                            el.style.display = 'none';
                            try { el.remove(); } catch (e) {}
                        }
                    });
                } catch (e) {}
            });

            // High z-index elements that are clearly ads
            document.querySelectorAll('div, iframe, aside').forEach(el => {
                try {
                    const z = parseInt(window.getComputedStyle(el).zIndex) || 0;
                    const cls = (el.className || '').toString().toLowerCase();
                    if (z > 2000 && (cls.includes('ad') || cls.includes('banner')) && !keep(el)) {
                        el.style.display = 'none';
                        try { el.remove(); } catch (e) {}
                    }
                } catch (e) {}
            });

            // Form controls stay interactive whatever the overlays did
            document.querySelectorAll('input, select, button, textarea, form').forEach(el => {
                el.style.pointerEvents = 'auto';
                el.style.visibility = 'visible';
            });
        };

        window.open = function() { return null; };
        window.alert = function() { return null; };
        window.confirm = function() { return true; };

        sweep();
        document.addEventListener('DOMContentLoaded', sweep);
        const observer = new MutationObserver(sweep);
        observer.observe(document.body || document.documentElement, {
            childList: true,
            subtree: true
        });
    })();
    `
}
