package project

import "testing"

func TestResolveVideo(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want Video
	}{
		{
			name: "prefers videoUrl over video",
			rec:  Record{"video": "https://cdn/b.mp4", "videoUrl": "https://cdn/a.mp4"},
			want: Video{URL: "https://cdn/a.mp4", HasVideo: true},
		},
		{
			name: "falls through empty aliases",
			rec:  Record{"videoUrl": "", "video": nil, "videoURL": "", "video_link": "https://cdn/d.mp4"},
			want: Video{URL: "https://cdn/d.mp4", HasVideo: true},
		},
		{
			name: "blank alias is still a value",
			rec:  Record{"videoUrl": "  ", "video": "https://cdn/b.mp4"},
			want: Video{URL: "  ", HasVideo: true},
		},
		{
			name: "rewrites blob links",
			rec:  Record{"videoUrl": "https://github.com/u/r/blob/main/f.mp4"},
			want: Video{URL: "https://raw.githubusercontent.com/u/r/main/f.mp4", HasVideo: true},
		},
		{
			name: "leaves other github links alone",
			rec:  Record{"video": "https://github.com/u/r/raw/main/f.mp4"},
			want: Video{URL: "https://github.com/u/r/raw/main/f.mp4", HasVideo: true},
		},
		{
			name: "nothing set",
			rec:  Record{"id": "x"},
			want: Video{},
		},
		{
			name: "marker without url",
			rec:  Record{"hasVideo": true},
			want: Video{URL: "", HasVideo: true},
		},
		{
			name: "any non-empty marker string",
			rec:  Record{"hasVideo": "false"},
			want: Video{HasVideo: true},
		},
		{
			name: "zero and empty markers",
			rec:  Record{"hasVideo": float64(0), "videoUrl": ""},
			want: Video{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveVideo(tt.rec); got != tt.want {
				t.Fatalf("ResolveVideo() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
