package score

import (
	"testing"

	"github.com/LeChatP/RootAsRole-sub001/cap"
)

func TestActorMatchMin_UserBeatsGroup(t *testing.T) {
	user := ActorMatchMin{Kind: ActorUserMatch}
	group := ActorMatchMin{Kind: ActorGroupMatch, GroupCount: 1}
	if !user.Less(group) {
		t.Error("user match should be strictly better than group match")
	}
}

func TestActorMatchMin_SmallerGroupCombinationWins(t *testing.T) {
	small := ActorMatchMin{Kind: ActorGroupMatch, GroupCount: 1}
	big := ActorMatchMin{Kind: ActorGroupMatch, GroupCount: 3}
	if !small.Less(big) {
		t.Error("smaller group combination should be strictly better")
	}
}

func TestActorMatchMin_NoMatchNeverBetter(t *testing.T) {
	noMatch := ActorMatchMin{Kind: ActorNoMatch}
	if noMatch.Matching() {
		t.Error("NoMatch should not be matching")
	}
	user := ActorMatchMin{Kind: ActorUserMatch}
	if noMatch.Better(user) {
		t.Error("NoMatch should never be better than a real match")
	}
}

func TestCmdMin_ExactBeatsWildcard(t *testing.T) {
	exact := CmdMin{Status: true}
	wildcard := CmdMin{Status: true, Order: WildcardPath}
	if !exact.Better(wildcard) {
		t.Error("exact match should be better than a wildcard match")
	}
}

func TestCmdMin_UnionOrderAccumulates(t *testing.T) {
	var c CmdMin
	c.Status = true
	c.UnionOrder(WildcardPath)
	c.UnionOrder(RegexArgs)
	if c.Order != WildcardPath|RegexArgs {
		t.Errorf("Order = %b, want %b", c.Order, WildcardPath|RegexArgs)
	}
}

func TestClassify_NoCapsBeatsAdmin(t *testing.T) {
	none := Classify(cap.NewSet())
	admin := Classify(cap.NewSet(cap.SYS_ADMIN))
	if !none.Less(admin) {
		t.Error("empty capability set should be strictly better than an admin cap")
	}
}

func TestClassify_SetfcapCountsAsAdmin(t *testing.T) {
	got := Classify(cap.NewSet(cap.SETFCAP))
	if got.Kind != CapsAdmin {
		t.Errorf("Classify(SETFCAP) = %+v, want CapsAdmin", got)
	}
}

func TestClassify_NonAdminBeatsAdmin(t *testing.T) {
	nonAdmin := Classify(cap.NewSet(cap.DAC_OVERRIDE))
	admin := Classify(cap.NewSet(cap.SYS_ADMIN))
	if !nonAdmin.Less(admin) {
		t.Error("non-admin cap set should be strictly better than an admin cap set")
	}
}

func TestClassify_FullUniverseIsWorst(t *testing.T) {
	all := Classify(cap.Universe())
	admin := Classify(cap.NewSet(cap.SYS_ADMIN))
	if !admin.Less(all) {
		t.Error("CapsAll should be the worst grade")
	}
}

func TestSetUserMin_NoChangeBeatsAnyChange(t *testing.T) {
	noChange := SetUserMin{}
	change := SetUserMin{UID: &SetuidMin{IsRoot: false}}
	if !noChange.Less(change) {
		t.Error("no identity change should be strictly better than any change")
	}
}

func TestSetUserMin_NonRootBeatsRoot(t *testing.T) {
	nonRoot := SetUserMin{UID: &SetuidMin{IsRoot: false}}
	root := SetUserMin{UID: &SetuidMin{IsRoot: true}}
	if !nonRoot.Less(root) {
		t.Error("non-root target uid should be strictly better than root")
	}
}

func TestScore_TotalOrder_CmdBeforeUser(t *testing.T) {
	better := Score{
		UserMin: ActorMatchMin{Kind: ActorGroupMatch, GroupCount: 3},
		CmdMin:  CmdMin{Status: true},
	}
	worse := Score{
		UserMin: ActorMatchMin{Kind: ActorUserMatch},
		CmdMin:  CmdMin{Status: true, Order: WildcardPath},
	}
	if !better.Less(worse) {
		t.Error("command specificity should be compared before actor specificity")
	}
}

func TestScore_BetterFully_RequiresBothMatching(t *testing.T) {
	matching := Score{UserMin: ActorMatchMin{Kind: ActorUserMatch}, CmdMin: CmdMin{Status: true}}
	userOnly := Score{UserMin: ActorMatchMin{Kind: ActorUserMatch}, CmdMin: CmdMin{Status: false}}
	if !matching.BetterFully(userOnly) {
		t.Error("a fully matching score should beat one that only matched the actor")
	}
	if userOnly.BetterFully(matching) {
		t.Error("a partially matching score should never be better-fully")
	}
}

func TestScore_S2MultiRoleTieBreak(t *testing.T) {
	roleA := Score{UserMin: ActorMatchMin{Kind: ActorUserMatch}, CmdMin: CmdMin{Status: true}, CapsMin: Classify(cap.NewSet())}
	roleB := Score{UserMin: ActorMatchMin{Kind: ActorUserMatch}, CmdMin: CmdMin{Status: true}, CapsMin: Classify(cap.NewSet(cap.DAC_OVERRIDE))}
	if !roleA.Less(roleB) {
		t.Error("role with strictly lower CapsMin should win the tie-break (scenario S2)")
	}
}
