// Package unmix implements the spectrogram masking network used for source
// separation: a fixed 3-D convolutional encoder-decoder (OpenUnmix) that maps
// a normalized magnitude spectrogram to a magnitude estimate for one target.
//
// The architecture never varies at runtime, so the encoder and decoder are
// coded as a fixed pipeline rather than a dynamic layer list. The network
// output is a direct estimate; it is not multiplied back into the mixture.
package unmix
