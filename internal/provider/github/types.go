package github

import "github.com/shurcooL/githubv4"

// associatedPRQuery looks up the pull requests associated with a commit.
type associatedPRQuery struct {
	Repository struct {
		Object struct {
			Commit struct {
				AssociatedPullRequests struct {
					Nodes []associatedPR
				} `graphql:"associatedPullRequests(first: 10)"`
			} `graphql:"... on Commit"`
		} `graphql:"object(oid: $oid)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

type associatedPR struct {
	Number      int
	MergeCommit *struct {
		Oid githubv4.GitObjectID
	}
}
