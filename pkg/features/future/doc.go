// Package future provides asynchronous derived reactive values.
//
// An AsyncComputed wraps an asynchronous computation and exposes its
// lifecycle as a reactive Status value with four variants: Idle, Waiting,
// Success, and Error. Dependencies read inside the computation body are
// tracked live, including across suspension, and any change relaunches the
// computation. Results of superseded launches are discarded by generation
// id, so an older result can never overwrite a newer one.
//
// Basic Usage:
//
//	user := future.New(func(ctx context.Context) (*User, error) {
//	    id := userID.Get() // tracked: changing userID relaunches
//	    return db.FindUser(ctx, id)
//	})
//
//	stop := signet.Watch[future.Status[*User]](user, func(st future.Status[*User]) {
//	    switch {
//	    case st.IsLoading():
//	        showSpinner()
//	    case st.HasError():
//	        showError(st.Err())
//	    default:
//	        render(st.MustValue())
//	    }
//	}, signet.WatchImmediate())
package future
