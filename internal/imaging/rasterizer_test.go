package imaging

import (
	"bytes"
	"image"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Software", func() {
	var sw *Software

	BeforeEach(func() {
		sw = NewSoftware()
	})

	Describe("Paint", func() {
		var (
			src   image.Image
			angle Orientation
			size  int
			out   *image.NRGBA
			err   error
		)

		BeforeEach(func() {
			src = halves(40, 20)
			angle = 0
			size = 40
		})

		JustBeforeEach(func() {
			out, err = sw.Paint(src, angle, size)
		})

		When("the angle is 0", func() {
			BeforeEach(func() {
				angle = 0
			})

			It("centers the image upright", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(out.Bounds()).To(Equal(image.Rect(0, 0, 40, 40)))
				Expect(isRed(out.NRGBAAt(10, 20))).To(BeTrue())
				Expect(isBlue(out.NRGBAAt(30, 20))).To(BeTrue())
			})

			It("leaves the letterbox transparent", func() {
				Expect(out.NRGBAAt(20, 3).A).To(BeZero())
				Expect(out.NRGBAAt(20, 36).A).To(BeZero())
			})
		})

		When("the angle is 90", func() {
			BeforeEach(func() {
				angle = 90
			})

			It("turns the left half to the top", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(isRed(out.NRGBAAt(20, 10))).To(BeTrue())
				Expect(isBlue(out.NRGBAAt(20, 30))).To(BeTrue())
				Expect(out.NRGBAAt(3, 20).A).To(BeZero())
			})
		})

		When("the angle is 180", func() {
			BeforeEach(func() {
				angle = 180
			})

			It("mirrors both axes", func() {
				Expect(isBlue(out.NRGBAAt(10, 20))).To(BeTrue())
				Expect(isRed(out.NRGBAAt(30, 20))).To(BeTrue())
			})
		})

		When("the angle is 270", func() {
			BeforeEach(func() {
				angle = 270
			})

			It("turns the left half to the bottom", func() {
				Expect(isRed(out.NRGBAAt(20, 30))).To(BeTrue())
				Expect(isBlue(out.NRGBAAt(20, 10))).To(BeTrue())
			})
		})

		When("the source is larger than the surface", func() {
			BeforeEach(func() {
				src = halves(80, 40)
				angle = 0
			})

			It("scales the source down to fit", func() {
				Expect(out.Bounds().Dx()).To(Equal(40))
				Expect(isRed(out.NRGBAAt(10, 20))).To(BeTrue())
				Expect(isBlue(out.NRGBAAt(30, 20))).To(BeTrue())
				Expect(out.NRGBAAt(20, 3).A).To(BeZero())
			})
		})

		When("the source bounds do not start at the origin", func() {
			BeforeEach(func() {
				src = halves(80, 20).SubImage(image.Rect(20, 0, 60, 20))
				angle = 0
			})

			It("paints the visible region", func() {
				Expect(isRed(out.NRGBAAt(10, 20))).To(BeTrue())
				Expect(isBlue(out.NRGBAAt(30, 20))).To(BeTrue())
			})
		})

		When("the size is not positive", func() {
			BeforeEach(func() {
				size = 0
			})

			It("returns an error", func() {
				Expect(err).To(HaveOccurred())
			})
		})

		It("is deterministic", func() {
			again, againErr := sw.Paint(src, angle, size)
			Expect(againErr).NotTo(HaveOccurred())
			Expect(again.Pix).To(Equal(out.Pix))
		})
	})

	Describe("Encode", func() {
		var surface *image.NRGBA

		BeforeEach(func() {
			var err error
			surface, err = sw.Paint(halves(40, 20), 90, 40)
			Expect(err).NotTo(HaveOccurred())
		})

		It("writes PNG", func() {
			data, err := sw.Encode(surface, PNG)
			Expect(err).NotTo(HaveOccurred())
			_, format, err := image.DecodeConfig(bytes.NewReader(data))
			Expect(err).NotTo(HaveOccurred())
			Expect(format).To(Equal("png"))
		})

		It("writes JPEG", func() {
			data, err := sw.Encode(surface, JPEG)
			Expect(err).NotTo(HaveOccurred())
			cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
			Expect(err).NotTo(HaveOccurred())
			Expect(format).To(Equal("jpeg"))
			Expect(cfg.Width).To(Equal(40))
		})

		It("writes WebP that decodes back", func() {
			data, err := sw.Encode(surface, WebP)
			Expect(err).NotTo(HaveOccurred())
			Expect(isWebPFormat(data)).To(BeTrue())

			img, err := sw.Decode(data, "image/webp")
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Bounds().Dx()).To(Equal(40))
		})

		It("rejects an unknown codec", func() {
			_, err := sw.Encode(surface, Codec{MimeType: "image/gif", Extension: "gif"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Decode", func() {
		It("decodes PNG", func() {
			img, err := sw.Decode(encodePNG(halves(40, 20)), "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Bounds().Size()).To(Equal(image.Pt(40, 20)))
		})

		It("decodes JPEG without a declared type", func() {
			img, err := sw.Decode(encodeJPEG(halves(16, 8)), "")
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Bounds().Size()).To(Equal(image.Pt(16, 8)))
		})

		It("reports unsupported data", func() {
			_, err := sw.Decode([]byte("definitely not an image"), "image/png")
			Expect(err).To(MatchError(ContainSubstring("unsupported image format")))
		})
	})
})
