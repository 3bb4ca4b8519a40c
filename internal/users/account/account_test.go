// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want Agent
	}{
		{
			name: "chrome on windows",
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			want: Agent{Browser: "Chrome", OS: "Windows", Device: DeviceComputer},
		},
		{
			name: "edge is not chrome",
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
			want: Agent{Browser: "Edge", OS: "Windows", Device: DeviceComputer},
		},
		{
			name: "safari on mac",
			ua:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
			want: Agent{Browser: "Safari", OS: "macOS", Device: DeviceMac},
		},
		{
			name: "firefox on linux",
			ua:   "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			want: Agent{Browser: "Firefox", OS: "Linux", Device: DeviceComputer},
		},
		{
			name: "android phone is not linux",
			ua:   "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
			want: Agent{Browser: "Chrome", OS: "Android", Device: DevicePhone},
		},
		{
			name: "android tablet",
			ua:   "Mozilla/5.0 (Linux; Android 13; SM-X700) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			want: Agent{Browser: "Chrome", OS: "Android", Device: DeviceTablet},
		},
		{
			name: "iphone is not mac",
			ua:   "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1",
			want: Agent{Browser: "Safari", OS: "iOS", Device: DeviceIPhone},
		},
		{
			name: "ipad",
			ua:   "Mozilla/5.0 (iPad; CPU OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) CriOS/120.0 Mobile/15E148 Safari/604.1",
			want: Agent{Browser: "Chrome", OS: "iOS", Device: DeviceTablet},
		},
		{
			name: "opera",
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 OPR/106.0.0.0",
			want: Agent{Browser: "Opera", OS: "Windows", Device: DeviceComputer},
		},
		{
			name: "cli",
			ua:   "clouds-cli/0.1.0-dev",
			want: Agent{Browser: UnknownBrowser, OS: UnknownOS, Device: UnknownDevice},
		},
		{
			name: "empty",
			want: Agent{Browser: UnknownBrowser, OS: UnknownOS, Device: UnknownDevice},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseUserAgent(tt.ua))
		})
	}
}

func TestSessionInfo_Label(t *testing.T) {
	assert.Equal(t, "Firefox on Linux", SessionInfo{Browser: "Firefox", OS: "Linux"}.Label())
}
