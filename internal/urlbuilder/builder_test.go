package urlbuilder

import (
	"sync"
	"testing"

	"github.com/dunamismax/pixelprops/internal/domain"
	"github.com/stretchr/testify/require"
)

const testImageURL = "https://cdn.sanity.io/images/projectid/dataset/uuid-1366x768.png"

func testClient() *Client {
	return NewClient(Config{ProjectID: "projectid", Dataset: "dataset"})
}

func testSource() domain.ImageSource {
	return domain.ImageSource{Asset: &domain.AssetRef{Ref: "image-uuid-1366x768-png"}}
}

func TestURLParamOrder(t *testing.T) {
	b := testClient().Image(testSource()).
		Auto("format").
		Width(813).
		Blur(20).
		FlipHorizontal().
		Fit(FitCrop).
		Quality(20)

	require.Equal(t, testImageURL+"?flip=h&w=813&blur=20&q=20&fit=crop&auto=format", b.URL())
}

func TestURLFullParamOrder(t *testing.T) {
	b := testClient().Image(testSource()).
		Pad(4).
		DPR(2).
		Auto("format").
		Saturation(-50).
		Crop("entropy").
		Fit(FitCrop).
		Quality(60).
		MaxWidth(1200).
		MinWidth(200).
		MaxHeight(900).
		MinHeight(100).
		Orientation(90).
		Invert(true).
		Sharpen(5).
		Blur(10).
		ForceDownload("a b.png").
		Format("webp").
		Height(300).
		Width(400).
		FlipVertical().
		FlipHorizontal().
		BG("fff")

	want := testImageURL + "?bg=fff&flip=hv&w=400&h=300&fm=webp&dl=a+b.png&blur=10&sharp=5&invert=true" +
		"&or=90&min-h=100&max-h=900&min-w=200&max-w=1200&q=60&fit=crop&crop=entropy&sat=-50&auto=format&dpr=2&pad=4"
	require.Equal(t, want, b.URL())
}

func TestURLWithoutParams(t *testing.T) {
	require.Equal(t, testImageURL, testClient().Image(testSource()).URL())
}

func TestURLEmptyWhenUnresolvable(t *testing.T) {
	tests := []struct {
		name   string
		client *Client
		source domain.ImageSource
	}{
		{name: "missing project", client: NewClient(Config{Dataset: "dataset"}), source: testSource()},
		{name: "missing dataset", client: NewClient(Config{ProjectID: "projectid"}), source: testSource()},
		{name: "missing id", client: testClient(), source: domain.ImageSource{}},
		{name: "not an image id", client: testClient(), source: domain.ImageSource{ID: "file-uuid-pdf"}},
		{name: "bad dimensions", client: testClient(), source: domain.ImageSource{ID: "image-uuid-axb-png"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Empty(t, tt.client.Image(tt.source).URL())
		})
	}
}

func TestURLIncludesCropRect(t *testing.T) {
	src := testSource()
	src.Crop = &domain.Crop{Left: 0.1, Right: 0.1, Top: 0.1, Bottom: 0.1}

	got := testClient().Image(src).Quality(75).URL()
	require.Equal(t, testImageURL+"?rect=137,77,1092,614&q=75", got)
}

func TestURLFitsRectToFixedAspect(t *testing.T) {
	got := testClient().Image(testSource()).Size(100, 100).URL()
	// 768x768 window centred on the default hotspot.
	require.Equal(t, testImageURL+"?rect=299,0,768,768&w=100&h=100", got)
}

func TestURLFitKeepsRectInsideCrop(t *testing.T) {
	src := testSource()
	src.Crop = &domain.Crop{Left: 0.5}
	src.Hotspot = &domain.Hotspot{X: 0.1, Y: 0.95, Width: 0.1, Height: 0.1}

	got := testClient().Image(src).Size(100, 100).URL()
	require.Equal(t, testImageURL+"?rect=683,85,683,683&w=100&h=100", got)
}

func TestExplicitRectDisablesFit(t *testing.T) {
	src := testSource()
	src.Crop = &domain.Crop{Left: 0.1, Right: 0.1, Top: 0.1, Bottom: 0.1}

	got := testClient().Image(src).Rect(0, 0, 10, 10).URL()
	require.Equal(t, testImageURL+"?rect=0,0,10,10", got)

	ignored := testClient().Image(src).IgnoreImageParams().Width(10).URL()
	require.Equal(t, testImageURL+"?w=10", ignored)
}

func TestSettersDoNotMutateReceiver(t *testing.T) {
	base := testClient().Image(testSource()).Quality(75)
	wide := base.Width(640)

	require.Zero(t, base.Options().Width)
	require.Equal(t, 640, wide.Options().Width)
	require.Equal(t, 75, wide.Options().Quality)

	rect := base.Rect(1, 2, 3, 4)
	snapshot := rect.Options()
	snapshot.Rect.Left = 99
	require.Equal(t, 1, rect.Options().Rect.Left)
}

func TestBuilderConcurrentUse(t *testing.T) {
	base := testClient().Image(testSource()).Auto("format").Fit(FitClip)

	var wg sync.WaitGroup
	for i := 1; i <= 16; i++ {
		wg.Add(1)
		go func(width int) {
			defer wg.Done()
			_ = base.Width(width * 10).URL()
		}(i)
	}
	wg.Wait()

	require.Equal(t, testImageURL+"?fit=clip&auto=format", base.URL())
}

func TestCustomBaseURL(t *testing.T) {
	c := NewClient(Config{ProjectID: "p", Dataset: "d", BaseURL: "https://images.example.com/"})
	require.Equal(t, "https://images.example.com/images/p/d/uuid-1366x768.png?dpr=1.5", c.Image(testSource()).DPR(1.5).URL())
}
