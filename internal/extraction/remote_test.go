package extraction

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/pigfarm/receipt-capture/internal/apperror"
	"github.com/pigfarm/receipt-capture/internal/imaging"
)

var _ = Describe("Remote", func() {
	var (
		server *ghttp.Server
		remote *Remote
		token  string
		asset  *imaging.Asset
		result Result
		err    error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		token = "secret-token"
		asset = &imaging.Asset{
			Filename: "rotated_image.png",
			MimeType: "image/png",
			Data:     []byte("\x89PNG fake bytes"),
		}
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		remote = NewRemote(server.URL(), token)
		result, err = remote.Extract(context.Background(), asset)
	})

	When("the service returns a result", func() {
		var uploaded []byte

		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("POST", "/ocr"),
				ghttp.VerifyHeaderKV("Authorization", "Bearer secret-token"),
				func(w http.ResponseWriter, r *http.Request) {
					defer GinkgoRecover()
					Expect(r.ParseMultipartForm(1 << 20)).To(Succeed())
					Expect(r.MultipartForm.File).To(HaveLen(1))
					f, header, ferr := r.FormFile(ImageField)
					Expect(ferr).NotTo(HaveOccurred())
					defer f.Close()
					Expect(header.Filename).To(Equal("rotated_image.png"))
					Expect(header.Header.Get("Content-Type")).To(Equal("image/png"))
					uploaded, _ = io.ReadAll(f)
				},
				ghttp.RespondWith(http.StatusOK, `{"expense-type": "needs", "date": "5/3/24", "total": "$12", "expense-name": "Coffee"}`),
			))
		})

		It("returns the raw result", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(HaveKeyWithValue(KeyTotal, "$12"))
			Expect(result).To(HaveKeyWithValue(KeyExpenseName, "Coffee"))
		})

		It("uploads the bytes unchanged", func() {
			Expect(uploaded).To(Equal(asset.Data))
		})
	})

	When("the service returns a numeric total", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK, `{"total": 9.99}`))
		})

		It("keeps the number exact", func() {
			Expect(result[KeyTotal]).To(Equal(json.Number("9.99")))
		})
	})

	When("no token is configured", func() {
		BeforeEach(func() {
			token = ""
			server.AppendHandlers(ghttp.CombineHandlers(
				func(w http.ResponseWriter, r *http.Request) {
					defer GinkgoRecover()
					Expect(r.Header.Get("Authorization")).To(BeEmpty())
				},
				ghttp.RespondWith(http.StatusOK, `{}`),
			))
		})

		It("sends no credential", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(BeEmpty())
		})
	})

	When("the service fails with a detail", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, `{"detail": "Error processing image: cannot identify image file"}`))
		})

		It("surfaces the detail", func() {
			Expect(apperror.IsKind(err, apperror.KindRemote)).To(BeTrue())
			Expect(apperror.Message(err)).To(Equal("Error processing image: cannot identify image file"))
		})
	})

	When("the service fails without a detail", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusBadGateway, ""))
		})

		It("uses the generic message", func() {
			Expect(apperror.Message(err)).To(Equal("An error occurred during OCR processing"))
		})
	})

	When("the response is not a JSON object", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK, `["not", "a", "record"]`))
		})

		It("returns a remote error", func() {
			Expect(apperror.IsKind(err, apperror.KindRemote)).To(BeTrue())
		})
	})
})
