package pipeline

import "testing"

func TestDetectOrderSheet(t *testing.T) {
	cases := []struct {
		name        string
		subject     string
		text        string
		attachments []string
		want        bool
	}{
		{
			name:        "workbook attachment with order subject",
			subject:     "Provision order MS Aurora",
			text:        "order sheet attached, qty per line",
			attachments: []string{"order.xlsx"},
			want:        true,
		},
		{
			name:    "japanese order mail",
			subject: "発注書 寄港分",
			text:    "数量 120 ケース、40 箱",
			want:    true,
		},
		{
			name:    "newsletter",
			subject: "Weekly crew newsletter",
			text:    "welcome aboard",
			want:    false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := DetectOrderSheet(tc.subject, tc.text, "", tc.attachments)
			if res.IsOrder != tc.want {
				t.Fatalf("IsOrder=%v score=%v reason=%s", res.IsOrder, res.Score, res.Reason)
			}
		})
	}
}
