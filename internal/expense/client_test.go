package expense

import (
	"context"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/pigfarm/receipt-capture/internal/apperror"
)

var _ = Describe("Client", func() {
	var (
		server *ghttp.Server
		client *Client
		record Record
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		client = NewClient(server.URL() + "/")
		record = Record{
			ExpenseType:  "needs",
			ExpenseDate:  "2024-05-03",
			ExpenseTotal: 12.5,
			ExpenseName:  "Coffee",
		}
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("Create", func() {
		var (
			saved *Expense
			err   error
		)

		JustBeforeEach(func() {
			saved, err = client.Create(context.Background(), "secret-token", record)
		})

		When("the service stores the expense", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest("POST", "/expenses"),
					ghttp.VerifyHeaderKV("Authorization", "Bearer secret-token"),
					ghttp.VerifyContentType("application/json"),
					ghttp.VerifyJSON(`{"expenseType":"needs","expenseDate":"2024-05-03","expenseTotal":12.5,"expenseName":"Coffee"}`),
					ghttp.RespondWithJSONEncoded(http.StatusCreated, Expense{ID: "exp-1", Record: record}),
				))
			})

			It("returns the echoed record", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(saved.ID).To(Equal("exp-1"))
				Expect(saved.ExpenseName).To(Equal("Coffee"))
				Expect(saved.ExpenseTotal).To(Equal(12.5))
			})
		})

		When("the service rejects the expense with a detail", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWith(http.StatusUnauthorized, `{"detail": "Could not validate credentials"}`))
			})

			It("surfaces the detail as a remote error", func() {
				Expect(apperror.IsKind(err, apperror.KindRemote)).To(BeTrue())
				Expect(apperror.Message(err)).To(Equal("Could not validate credentials"))
			})
		})

		When("the service fails without a detail", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "boom"))
			})

			It("uses the generic message", func() {
				Expect(apperror.Message(err)).To(Equal(submitFallback))
			})
		})

		When("the service is unreachable", func() {
			BeforeEach(func() {
				client = NewClient("http://127.0.0.1:1")
			})

			It("returns a remote error", func() {
				Expect(apperror.IsKind(err, apperror.KindRemote)).To(BeTrue())
			})
		})
	})

	Describe("List", func() {
		It("returns stored expenses", func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("GET", "/expenses"),
				ghttp.VerifyHeaderKV("Authorization", "Bearer secret-token"),
				ghttp.RespondWithJSONEncoded(http.StatusOK, []*Expense{{ID: "a", Record: record}, {ID: "b", Record: record}}),
			))

			expenses, err := client.List(context.Background(), "secret-token")
			Expect(err).NotTo(HaveOccurred())
			Expect(expenses).To(HaveLen(2))
		})

		It("omits the header without a token", func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				func(w http.ResponseWriter, r *http.Request) {
					Expect(r.Header.Get("Authorization")).To(BeEmpty())
				},
				ghttp.RespondWith(http.StatusOK, `[]`),
			))

			expenses, err := client.List(context.Background(), "")
			Expect(err).NotTo(HaveOccurred())
			Expect(expenses).To(BeEmpty())
		})
	})
})
