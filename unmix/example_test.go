package unmix_test

import (
	"fmt"

	"github.com/cwbudde/algo-unmix/unmix"
)

func ExampleNew() {
	model, err := unmix.New(37, 113, unmix.WithChannels(2), unmix.WithSeed(1))
	if err != nil {
		panic(err)
	}
	model.Freeze()
	fmt.Printf("bins=%d subbins=%d channels=%d mode=%s\n",
		model.Bins(), model.SubBins(), model.Channels(), model.Mode())

	// Output:
	// bins=37 subbins=113 channels=2 mode=inference
}
