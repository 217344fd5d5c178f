// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package resp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLength(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int64
		wantErr bool
	}{
		{name: "Zero", in: "0", want: 0},
		{name: "Positive", in: "12345", want: 12345},
		{name: "NegativeOneIsNull", in: "-1", want: -1},
		{name: "OtherNegativeRejected", in: "-2", wantErr: true},
		{name: "LeadingZeroRejected", in: "01", wantErr: true},
		{name: "Empty", in: "", wantErr: true},
		{name: "NonDigit", in: "12a", wantErr: true},
		{name: "MaxInt64", in: "9223372036854775807", want: 9223372036854775807},
		{name: "Overflow", in: "9223372036854775808", wantErr: true},
		{name: "WayOverflow", in: "99999999999999999999", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLength([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseInteger(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int64
		wantErr bool
	}{
		{name: "Zero", in: "0", want: 0},
		{name: "Positive", in: "1000", want: 1000},
		{name: "Negative", in: "-1000", want: -1000},
		{name: "NegativeZeroRejected", in: "-0", wantErr: true},
		{name: "LeadingZeroRejected", in: "007", wantErr: true},
		{name: "LoneSign", in: "-", wantErr: true},
		{name: "MinInt64Boundary", in: "-9223372036854775808", want: -9223372036854775808},
		{name: "Overflow", in: "9223372036854775808", wantErr: true},
		{name: "NegativeOverflow", in: "-9223372036854775809", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInteger([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
