package validate_test

import (
	"testing"

	"github.com/ardanlabs/blocktree/business/sys/validate"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type newTx struct {
	From   string `json:"from" validate:"required"`
	To     string `json:"to" validate:"required"`
	Amount uint64 `json:"amount" validate:"gt=0"`
}

func Test_Check(t *testing.T) {
	t.Log("Given the need to validate request models.")
	{
		t.Logf("\tTest 0:\tWhen handling a good model.")
		{
			if err := validate.Check(newTx{From: "bill", To: "jack", Amount: 1}); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould pass validation: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould pass validation.", success)
		}

		t.Logf("\tTest 1:\tWhen handling a bad model.")
		{
			err := validate.Check(newTx{From: "bill"})
			if !validate.IsFieldErrors(err) {
				t.Fatalf("\t%s\tTest 1:\tShould get field errors: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould get field errors.", success)

			fields := validate.GetFieldErrors(err).Fields()
			if _, exists := fields["to"]; !exists {
				t.Fatalf("\t%s\tTest 1:\tShould use the json name of the field, got %v.", failed, fields)
			}
			if _, exists := fields["amount"]; !exists {
				t.Fatalf("\t%s\tTest 1:\tShould report the amount, got %v.", failed, fields)
			}
			t.Logf("\t%s\tTest 1:\tShould use the json names of the fields.", success)
		}

		t.Logf("\tTest 2:\tWhen handling a slice of models.")
		{
			err := validate.CheckSlice([]newTx{{From: "bill", To: "jack", Amount: 1}, {From: "bill", To: "jack"}})

			fields := validate.GetFieldErrors(err).Fields()
			if _, exists := fields["[1].amount"]; !exists {
				t.Fatalf("\t%s\tTest 2:\tShould report the index of the bad model, got %v.", failed, fields)
			}
			t.Logf("\t%s\tTest 2:\tShould report the index of the bad model.", success)
		}
	}
}
