package imageprops_test

import (
	"fmt"

	"github.com/dunamismax/pixelprops/internal/domain"
	"github.com/dunamismax/pixelprops/internal/imageprops"
	"github.com/dunamismax/pixelprops/internal/urlbuilder"
)

func ExampleMemo() {
	client := urlbuilder.NewClient(urlbuilder.Config{ProjectID: "projectid", Dataset: "dataset"})
	src := domain.SourceFromID("image-uuid-1920x1080-png")
	opts := imageprops.Options{Main: imageprops.DefaultTransform{Quality: 80}, Shape: imageprops.ShapePlain}

	// One Memo per rendered image; repeated renders with unchanged inputs
	// reuse the resolved props.
	var memo imageprops.Memo
	first, _ := memo.Resolve(client, src, opts)
	again, _ := memo.Resolve(client, src, opts)

	fmt.Println(first == again)
	fmt.Println(first.Src)
	fmt.Println(first.Loader(imageprops.LoaderParams{Width: 640}))
	// Output:
	// true
	// https://cdn.sanity.io/images/projectid/dataset/uuid-1920x1080.png?q=80&fit=clip&auto=format
	// https://cdn.sanity.io/images/projectid/dataset/uuid-1920x1080.png?w=640&q=80&fit=clip&auto=format
}
